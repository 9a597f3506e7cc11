package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidQuery(t *testing.T) {
	q := &Query{
		Externals: []string{"min"},
		Clauses: []Clause{
			&For{Var: "x", Pos: "i", Score: "s", AllowEmpty: true, In: "1 to 10"},
			Let{Var: "y", Expr: "$x * 2"},
			&Where{Cond: "$y > $min"},
			&GroupBy{Keys: []GroupKey{{Var: "k", Expr: "$x mod 3"}, {Var: "y"}}},
			&OrderBy{Keys: []OrderKey{{Expr: "$k", Descending: true, EmptyGreatest: true}}, Stable: true},
			&Count{Var: "n"},
		},
		Return: "($n, $k)",
	}

	result := Validate(q)

	assert.True(t, result.Valid(), "problems: %v", result.Problems)
	assert.NoError(t, result.Err())
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		q    *Query
		want string
	}{
		{"nil query", nil, "nil query"},
		{"no clauses", &Query{Return: "1"}, "query has no clauses"},
		{"starts with where", &Query{Clauses: []Clause{&Where{Cond: "true()"}}, Return: "1"},
			"clause 1: a query must start with for or let, not where"},
		{"empty return", &Query{Clauses: []Clause{&Let{Var: "x", Expr: "1"}}}, "return expression is empty"},
		{"bad variable name", &Query{Clauses: []Clause{&Let{Var: "1x", Expr: "1"}}, Return: "1"},
			`clause 1: let: invalid variable name "1x"`},
		{"dollar in name", &Query{Clauses: []Clause{&For{Var: "$x", In: "1"}}, Return: "1"},
			`clause 1: for: invalid variable name "$x"`},
		{"empty for source", &Query{Clauses: []Clause{&For{Var: "x", In: " "}}, Return: "1"},
			"clause 1: for expression is empty"},
		{"position equals item", &Query{Clauses: []Clause{&For{Var: "x", Pos: "x", In: "1"}}, Return: "1"},
			"clause 1: for: $x used as both item and position variable"},
		{"group without keys", &Query{Clauses: []Clause{&Let{Var: "x", Expr: "1"}, &GroupBy{}}, Return: "1"},
			"clause 2: group by without keys"},
		{"order without keys", &Query{Clauses: []Clause{&Let{Var: "x", Expr: "1"}, &OrderBy{}}, Return: "1"},
			"clause 2: order by without keys"},
		{"empty order key", &Query{Clauses: []Clause{&Let{Var: "x", Expr: "1"}, &OrderBy{Keys: []OrderKey{{}}}}, Return: "1"},
			"clause 2: order by expression is empty"},
		{"duplicate external", &Query{Externals: []string{"a", "a"}, Clauses: []Clause{&Let{Var: "x", Expr: "$a"}}, Return: "1"},
			"external $a declared twice"},
		{"nil clause", &Query{Clauses: []Clause{&Let{Var: "x", Expr: "1"}, nil}, Return: "1"},
			"clause 2: unknown clause type <nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.q)
			require.False(t, result.Valid())
			assert.Contains(t, result.Problems, tt.want)

			var verr *ValidationError
			require.ErrorAs(t, result.Err(), &verr)
			assert.Contains(t, verr.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	q := &Query{
		Clauses: []Clause{
			&Count{Var: ""},
			&Where{},
		},
	}

	result := Validate(q)

	assert.Len(t, result.Problems, 4)
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"x", "_x", "long-name.2", "p:local", "été"} {
		assert.True(t, validName(name), name)
	}
	for _, name := range []string{"", "1a", "-a", "a:b:c", ":a", "a b"} {
		assert.False(t, validName(name), name)
	}
}
