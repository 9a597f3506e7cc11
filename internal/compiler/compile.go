package compiler

import (
	"fmt"

	"github.com/roach88/xqdb/internal/parser"
	"github.com/roach88/xqdb/internal/query"
	"github.com/roach88/xqdb/internal/queryir"
)

// Compile turns a query descriptor into an optimized pipeline. The result
// carries the inferred item type and static cardinality of the query.
func Compile(q *queryir.Query) (*query.Compiled, error) {
	f, scope, err := Build(q)
	if err != nil {
		return nil, err
	}
	c, err := query.Compile(f, scope)
	if err != nil {
		return nil, &CompileError{Code: ErrPipeline, Field: "query", Message: err.Error(), Err: err}
	}
	return c, nil
}

// Build translates q into an unoptimized FLWOR expression and the scope its
// variables live in. Expressions are parsed in clause order, so each one
// sees the externals and the variables bound before it.
func Build(q *queryir.Query) (*query.FLWOR, *query.Scope, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return nil, nil, &CompileError{Code: ErrInvalidQuery, Field: "query", Message: err.Error(), Err: err}
	}

	b := &builder{scope: query.NewScope()}
	for _, name := range q.Externals {
		b.vars = append(b.vars, b.scope.DeclareExternal(name))
	}
	clauses := make([]query.Clause, 0, len(q.Clauses))
	for i, c := range q.Clauses {
		qc, err := b.clause(fmt.Sprintf("clauses[%d]", i), c)
		if err != nil {
			return nil, nil, err
		}
		clauses = append(clauses, qc)
	}
	ret, err := b.expr("return", q.Return)
	if err != nil {
		return nil, nil, err
	}
	f, err := query.NewFLWOR(clauses, ret)
	if err != nil {
		return nil, nil, &CompileError{Code: ErrPipeline, Field: "clauses", Message: err.Error(), Err: err}
	}
	return f, b.scope, nil
}

type builder struct {
	scope *query.Scope
	vars  []*query.Var // innermost last
}

func (b *builder) expr(field, src string) (query.Expr, error) {
	e, err := parser.ParseExpr(src, b.scope, b.vars)
	if err != nil {
		return nil, exprError(field, err)
	}
	return e, nil
}

func (b *builder) declare(name string) *query.Var {
	v := b.scope.Declare(name)
	b.vars = append(b.vars, v)
	return v
}

func (b *builder) lookup(name string) (*query.Var, bool) {
	for i := len(b.vars) - 1; i >= 0; i-- {
		if b.vars[i].Name == name {
			return b.vars[i], true
		}
	}
	return nil, false
}

func (b *builder) clause(field string, c queryir.Clause) (query.Clause, error) {
	switch c := deref(c).(type) {
	case queryir.For:
		src, err := b.expr(field+".in", c.In)
		if err != nil {
			return nil, err
		}
		f := &query.For{Var: b.declare(c.Var), Empty: c.AllowEmpty, Expr: src}
		if c.Pos != "" {
			f.Pos = b.declare(c.Pos)
		}
		if c.Score != "" {
			f.Score = b.declare(c.Score)
		}
		return f, nil

	case queryir.Let:
		e, err := b.expr(field+".expr", c.Expr)
		if err != nil {
			return nil, err
		}
		return &query.Let{Var: b.declare(c.Var), Score: c.Score, Expr: e}, nil

	case queryir.Where:
		cond, err := b.expr(field+".where", c.Cond)
		if err != nil {
			return nil, err
		}
		return &query.Where{Cond: cond}, nil

	case queryir.GroupBy:
		g := &query.GroupBy{}
		for i, k := range c.Keys {
			kf := fmt.Sprintf("%s.keys[%d]", field, i)
			if k.Expr == "" {
				v, ok := b.lookup(k.Var)
				if !ok {
					return nil, &CompileError{Code: ErrUndefinedVar, Field: kf,
						Message: fmt.Sprintf("group by undeclared variable $%s", k.Var)}
				}
				g.Keys = append(g.Keys, query.GroupKey{Var: v, Expr: &query.VarRef{Var: v}})
				continue
			}
			e, err := b.expr(kf+".expr", k.Expr)
			if err != nil {
				return nil, err
			}
			g.Keys = append(g.Keys, query.GroupKey{Var: b.declare(k.Var), Expr: e})
		}
		return g, nil

	case queryir.OrderBy:
		ob := &query.OrderBy{Stable: c.Stable}
		for i, k := range c.Keys {
			e, err := b.expr(fmt.Sprintf("%s.keys[%d].expr", field, i), k.Expr)
			if err != nil {
				return nil, err
			}
			ob.Keys = append(ob.Keys, query.OrderKey{Expr: e, Desc: k.Descending, EmptyGreatest: k.EmptyGreatest})
		}
		return ob, nil

	case queryir.Count:
		return &query.Count{Var: b.declare(c.Var)}, nil
	}
	return nil, &CompileError{Code: ErrInvalidQuery, Field: field, Message: fmt.Sprintf("unknown clause type %T", c)}
}

// deref normalizes pointer clauses to values.
func deref(c queryir.Clause) queryir.Clause {
	switch c := c.(type) {
	case *queryir.For:
		return *c
	case *queryir.Let:
		return *c
	case *queryir.Where:
		return *c
	case *queryir.GroupBy:
		return *c
	case *queryir.OrderBy:
		return *c
	case *queryir.Count:
		return *c
	}
	return c
}
