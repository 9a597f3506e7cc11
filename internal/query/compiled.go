package query

import (
	"context"
	"slices"

	"github.com/roach88/xqdb/internal/xdm"
)

// Compiled is an optimized query ready for evaluation.
type Compiled struct {
	Root  Expr
	Scope *Scope
	// Rewrites lists the optimizations applied at compile time.
	Rewrites []string
}

// Compile optimizes root. The scope must be the one the expression tree
// was built with.
func Compile(root Expr, scope *Scope) (*Compiled, error) {
	o := NewOptimizer()
	opt, err := root.Optimize(o)
	if err != nil {
		return nil, err
	}
	return &Compiled{Root: opt, Scope: scope, Rewrites: o.Rewrites()}, nil
}

// Type returns the static type of the result.
func (c *Compiled) Type() xdm.SeqType { return c.Root.SeqType() }

// Card returns the static cardinality of the result as an occurrence
// indicator.
func (c *Compiled) Card() xdm.Occ { return c.Root.SeqType().Occ.Norm() }

// Plan returns the optimized expression in query syntax.
func (c *Compiled) Plan() string { return c.Root.String() }

// Iter starts an evaluation. External variables are bound by name with
// WithVariable; binding a name the query does not declare is an error.
func (c *Compiled) Iter(ctx context.Context, opts ...Option) (*Result, error) {
	qc := NewContext(ctx, c.Scope.Len(), opts...)
	externals := c.Scope.Externals()
	for name := range qc.bindings {
		if !slices.ContainsFunc(externals, func(v *Var) bool { return v.Name == name }) {
			return nil, xdm.StaticError(xdm.CodeUndefinedVar, "undeclared external variable $%s", name)
		}
	}
	for _, v := range externals {
		if val, ok := qc.bindings[v.Name]; ok {
			qc.Set(v, val)
		}
	}
	it, err := c.Root.Iter(qc)
	if err != nil {
		return nil, err
	}
	return &Result{qc: qc, it: it}, nil
}

// Value evaluates the query completely.
func (c *Compiled) Value(ctx context.Context, opts ...Option) (xdm.Value, error) {
	res, err := c.Iter(ctx, opts...)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return xdm.Collect(res)
}

// Result is a running evaluation. Items are produced on demand.
type Result struct {
	qc *Context
	it xdm.Iter
}

// Next returns the next item, or nil when the result is exhausted.
func (r *Result) Next() (xdm.Item, error) {
	if r.it == nil {
		return nil, nil
	}
	it, err := r.it.Next()
	if err != nil || it == nil {
		r.Close()
	}
	return it, err
}

// All returns the remaining items.
func (r *Result) All() ([]xdm.Item, error) {
	var out []xdm.Item
	for {
		it, err := r.Next()
		if err != nil {
			return nil, err
		}
		if it == nil {
			return out, nil
		}
		out = append(out, it)
	}
}

// Steps returns the number of clause steps taken so far.
func (r *Result) Steps() int64 { return r.qc.Steps() }

// Close releases the evaluator state. Further calls of Next return nil.
func (r *Result) Close() { r.it = nil }
