package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/queryir"
)

const libraryQueries = `
query: titles: {
	externals: ["year"]
	clauses: [
		{"for": "b", at: "i", "in": #"doc("lib.xml")//book"#},
		{where: "$b/@year > $year"},
		{order_by: [{expr: "$b/title", descending: true, empty: "greatest"}], stable: true},
	]
	return: "$b/title/string()"
}

query: groups: {
	clauses: [
		{"for": "x", "in": "1 to 10", allowing_empty: true, score: "s"},
		{"let": "m", expr: "$x mod 3"},
		{group_by: [{var: "m"}, {var: "big", expr: "$x > 5"}]},
		{count: "n"},
	]
	return: "($n, $m)"
}
`

func TestLoadCUE(t *testing.T) {
	queries, err := LoadCUE([]byte(libraryQueries), "lib.cue")
	require.NoError(t, err)
	require.Len(t, queries, 2)

	titles := queries[0]
	assert.Equal(t, "titles", titles.Name)
	assert.Equal(t, []string{"year"}, titles.Externals)
	require.Len(t, titles.Clauses, 3)
	assert.Equal(t, &queryir.For{Var: "b", Pos: "i", In: `doc("lib.xml")//book`}, titles.Clauses[0])
	assert.Equal(t, &queryir.Where{Cond: "$b/@year > $year"}, titles.Clauses[1])
	assert.Equal(t, &queryir.OrderBy{
		Keys:   []queryir.OrderKey{{Expr: "$b/title", Descending: true, EmptyGreatest: true}},
		Stable: true,
	}, titles.Clauses[2])
	assert.Equal(t, "$b/title/string()", titles.Return)

	groups := queries[1]
	assert.Equal(t, "groups", groups.Name)
	assert.Equal(t, &queryir.For{Var: "x", Score: "s", AllowEmpty: true, In: "1 to 10"}, groups.Clauses[0])
	assert.Equal(t, &queryir.Let{Var: "m", Expr: "$x mod 3"}, groups.Clauses[1])
	assert.Equal(t, &queryir.GroupBy{Keys: []queryir.GroupKey{{Var: "m"}, {Var: "big", Expr: "$x > 5"}}}, groups.Clauses[2])
	assert.Equal(t, &queryir.Count{Var: "n"}, groups.Clauses[3])

	for _, q := range queries {
		_, err := Compile(q)
		assert.NoError(t, err, q.Name)
	}
}

func TestCompileCUE_SingleValue(t *testing.T) {
	v := cuecontext.New().CompileString(`
		query: sq: {
			clauses: [{"let": "s", score: true, expr: "(1, 2)"}, {group_by: "s"}]
			return: "$s"
		}
	`)
	require.NoError(t, v.Err())

	q, err := CompileCUE(v.LookupPath(cue.ParsePath("query.sq")))
	require.NoError(t, err)

	assert.Equal(t, "sq", q.Name)
	assert.Equal(t, &queryir.Let{Var: "s", Score: true, Expr: "(1, 2)"}, q.Clauses[0])
	assert.Equal(t, &queryir.GroupBy{Keys: []queryir.GroupKey{{Var: "s"}}}, q.Clauses[1])
}

func TestLoadCUE_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		code  string
		field string
	}{
		{"cue syntax", `query: x: {`, ErrCUE, "cue"},
		{"no query struct", `other: 1`, ErrCUEShape, "query"},
		{"missing clauses", `query: x: return: "1"`, ErrCUEShape, "clauses"},
		{"missing return", `query: x: clauses: [{"let": "a", expr: "1"}]`, ErrCUEShape, "return"},
		{"two kinds", `query: x: {clauses: [{"let": "a", where: "1", expr: "1"}], return: "1"}`, ErrCUEShape, "clauses[0]"},
		{"no kind", `query: x: {clauses: [{expr: "1"}], return: "1"}`, ErrCUEShape, "clauses[0]"},
		{"for without in", `query: x: {clauses: [{"for": "a"}], return: "1"}`, ErrCUEShape, "clauses[0].in"},
		{"bad empty order", `query: x: {clauses: [{"let": "a", expr: "1"}, {order_by: [{expr: "$a", empty: "last"}]}], return: "1"}`,
			ErrCUEShape, "clauses[1].order_by[0].empty"},
		{"order_by not a list", `query: x: {clauses: [{"let": "a", expr: "1"}, {order_by: "$a"}], return: "1"}`,
			ErrCUEShape, "clauses[1].order_by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCUE([]byte(tt.src), "q.cue")
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code, ce.Error())
			assert.Equal(t, tt.field, ce.Field, ce.Error())
		})
	}
}

func TestLoadCUE_ErrorPosition(t *testing.T) {
	_, err := LoadCUE([]byte("query: x: {\n\tclauses: [{\"for\": \"a\"}]\n\treturn: \"1\"\n}"), "pos.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pos.cue:2:")
}
