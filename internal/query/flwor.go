package query

import (
	"slices"
	"strings"

	"github.com/roach88/xqdb/internal/xdm"
)

// FLWOR is a pipeline of clauses followed by a return expression. It is
// evaluated lazily: each pulled item advances the clause chain only as far
// as needed.
type FLWOR struct {
	Clauses []Clause
	Return  Expr
}

// NewFLWOR creates a FLWOR expression. The first clause must be a for or
// a let. Order by and group by clauses capture the variables declared
// before them.
func NewFLWOR(clauses []Clause, ret Expr) (*FLWOR, error) {
	if len(clauses) == 0 {
		return nil, xdm.Internal("FLWOR expression without clauses")
	}
	switch c := clauses[0].(type) {
	case *For, *Let:
	default:
		return nil, xdm.StaticError(xdm.CodeSyntax, "FLWOR expression starts with %q", c.String())
	}

	var scope []*Var
	for _, c := range clauses {
		switch c := c.(type) {
		case *OrderBy:
			c.vars = slices.Clone(scope)
		case *GroupBy:
			c.rest = nil
			for _, v := range scope {
				if !c.isKey(v) {
					c.rest = append(c.rest, v)
				}
			}
			scope = slices.Clone(c.rest)
			for _, k := range c.Keys {
				scope = append(scope, k.Var)
			}
			continue
		}
		scope = append(scope, c.Declares()...)
	}
	return &FLWOR{Clauses: clauses, Return: ret}, nil
}

func (c *GroupBy) isKey(v *Var) bool {
	for _, k := range c.Keys {
		if k.Var == v {
			return true
		}
	}
	return false
}

// Iter builds a fresh clause chain and streams the return expression once
// per tuple.
func (f *FLWOR) Iter(qc *Context) (xdm.Iter, error) {
	var ev Eval = &startEval{}
	for _, c := range f.Clauses {
		ev = c.Eval(ev)
	}
	var cur xdm.Iter
	done := false
	return xdm.IterFunc(func() (xdm.Item, error) {
		for !done {
			if cur != nil {
				it, err := cur.Next()
				if err != nil || it != nil {
					return it, err
				}
				cur = nil
			}
			ok, err := ev.Next(qc)
			if err != nil {
				return nil, err
			}
			if !ok {
				done = true
				break
			}
			if cur, err = f.Return.Iter(qc); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}), nil
}

// Value implements Expr.
func (f *FLWOR) Value(qc *Context) (xdm.Value, error) { return iterValue(f, qc) }

// tuples returns the occurrence of the tuple stream.
func (f *FLWOR) tuples() xdm.Occ {
	occ := xdm.OccOne
	for _, c := range f.Clauses {
		occ = c.calcOcc(occ)
	}
	return occ
}

// SeqType implements Expr.
func (f *FLWOR) SeqType() xdm.SeqType {
	rt := f.Return.SeqType()
	return xdm.SeqType{Type: rt.Type, Occ: f.tuples().Mul(rt.Occ)}
}

// Size implements Expr.
func (f *FLWOR) Size() int {
	n := 1
	for _, c := range f.Clauses {
		if n = c.calcSize(n); n <= 0 {
			return n
		}
	}
	rs := f.Return.Size()
	if rs < 0 {
		return -1
	}
	return n * rs
}

// Optimize optimizes the clauses in order, narrowing variable types as it
// goes. For clauses over exactly one item become let clauses, constant
// where clauses are dropped or empty the expression, and an empty for
// source without allowing empty makes the whole expression empty.
func (f *FLWOR) Optimize(o *Optimizer) (Expr, error) {
	var out []Clause
	for _, c := range f.Clauses {
		if err := c.optimize(o); err != nil {
			return nil, err
		}
		switch c := c.(type) {
		case *For:
			occ := c.Expr.SeqType().Occ
			if occ.Zero() && !c.Empty {
				o.note("%s: empty source", c)
				return &Literal{V: xdm.Empty}, nil
			}
			if occ == xdm.OccOne {
				o.note("%s: rewritten to let", c)
				out = append(out, c.asLet()...)
				continue
			}
		case *Where:
			if b, ok := literalEBV(c.Cond); ok {
				if !b {
					o.note("%s: no tuples", c)
					return &Literal{V: xdm.Empty}, nil
				}
				o.note("%s: removed", c)
				continue
			}
		}
		out = append(out, c)
	}
	f.Clauses = out

	ret, err := f.Return.Optimize(o)
	if err != nil {
		return nil, err
	}
	f.Return = ret
	if ret.SeqType().Occ.Zero() {
		o.note("return %s: empty result", ret)
		return &Literal{V: xdm.Empty}, nil
	}
	return f, nil
}

// String implements Expr.
func (f *FLWOR) String() string {
	var sb strings.Builder
	for _, c := range f.Clauses {
		sb.WriteString(c.String())
		sb.WriteByte(' ')
	}
	sb.WriteString("return ")
	sb.WriteString(f.Return.String())
	return sb.String()
}
