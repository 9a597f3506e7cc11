package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/xdm"
)

func lit(v xdm.Value) *Literal { return &Literal{V: v} }

func ref(v *Var) *VarRef { return &VarRef{Var: v} }

func call(t *testing.T, name string, args ...Expr) *Call {
	t.Helper()
	c, err := NewCall(name, args)
	require.NoError(t, err)
	return c
}

func flwor(t *testing.T, ret Expr, clauses ...Clause) *FLWOR {
	t.Helper()
	f, err := NewFLWOR(clauses, ret)
	require.NoError(t, err)
	return f
}

func compile(t *testing.T, root Expr, scope *Scope) *Compiled {
	t.Helper()
	c, err := Compile(root, scope)
	require.NoError(t, err)
	return c
}

// run compiles and evaluates root and returns the string values of the
// result.
func run(t *testing.T, root Expr, scope *Scope, opts ...Option) ([]string, error) {
	t.Helper()
	c := compile(t, root, scope)
	res, err := c.Iter(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	items, err := res.All()
	if err != nil {
		return nil, err
	}
	return strs(items), nil
}

func strs(items []xdm.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.String()
	}
	return out
}
