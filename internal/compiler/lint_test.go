package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/xqdb/internal/queryir"
)

func TestLint_Clean(t *testing.T) {
	q := &queryir.Query{
		Clauses: []queryir.Clause{
			&queryir.For{Var: "x", In: "1 to 3"},
			&queryir.Let{Var: "y", Expr: "$x * 2"},
			&queryir.GroupBy{Keys: []queryir.GroupKey{{Var: "y"}}},
		},
		Return: "($x, $y)",
	}
	assert.Empty(t, Lint(q))
}

func TestLint_Unused(t *testing.T) {
	q := &queryir.Query{
		Clauses: []queryir.Clause{
			&queryir.For{Var: "x", Pos: "i", In: "1 to 3"},
			&queryir.Count{Var: "n"},
		},
		Return: "$x",
	}
	assert.Equal(t, []Warning{
		{Field: "clauses[0].at", Message: "$i is never used", Level: "warning"},
		{Field: "clauses[1]", Message: "$n is never used", Level: "warning"},
	}, Lint(q))
}

func TestLint_Shadowing(t *testing.T) {
	q := &queryir.Query{
		Clauses: []queryir.Clause{
			&queryir.Let{Var: "v", Expr: "(3, 1, 2)"},
			&queryir.Let{Var: "v", Expr: "reverse($v)"},
		},
		Return: "$v",
	}
	assert.Equal(t, []Warning{
		{Field: "clauses[1]", Message: "$v hides the binding at clauses[0]", Level: "info"},
	}, Lint(q))
}
