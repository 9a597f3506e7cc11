package query

import (
	"fmt"

	"github.com/roach88/xqdb/internal/xdm"
)

// And is a short-circuit conjunction of effective boolean values.
type And struct {
	L, R Expr
}

func (a *And) Iter(qc *Context) (xdm.Iter, error) { return valueIter(a, qc) }
func (a *And) SeqType() xdm.SeqType               { return xdm.SeqBoolean }
func (a *And) Size() int                          { return 1 }
func (a *And) String() string                     { return fmt.Sprintf("(%s and %s)", a.L, a.R) }

// Value implements Expr.
func (a *And) Value(qc *Context) (xdm.Value, error) {
	ok, err := ebv(qc, a.L)
	if err != nil || !ok {
		return xdm.Bool(false), err
	}
	ok, err = ebv(qc, a.R)
	return xdm.Bool(ok), err
}

// Optimize implements Expr.
func (a *And) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if a.L, err = a.L.Optimize(o); err != nil {
		return nil, err
	}
	if a.R, err = a.R.Optimize(o); err != nil {
		return nil, err
	}
	if b, ok := literalEBV(a.L); ok {
		if !b {
			return &Literal{V: xdm.Bool(false)}, nil
		}
		return toBoolean(a.R), nil
	}
	return a, nil
}

// Or is a short-circuit disjunction of effective boolean values.
type Or struct {
	L, R Expr
}

func (e *Or) Iter(qc *Context) (xdm.Iter, error) { return valueIter(e, qc) }
func (e *Or) SeqType() xdm.SeqType               { return xdm.SeqBoolean }
func (e *Or) Size() int                          { return 1 }
func (e *Or) String() string                     { return fmt.Sprintf("(%s or %s)", e.L, e.R) }

// Value implements Expr.
func (e *Or) Value(qc *Context) (xdm.Value, error) {
	ok, err := ebv(qc, e.L)
	if err != nil || ok {
		return xdm.Bool(ok), err
	}
	ok, err = ebv(qc, e.R)
	return xdm.Bool(ok), err
}

// Optimize implements Expr.
func (e *Or) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if e.L, err = e.L.Optimize(o); err != nil {
		return nil, err
	}
	if e.R, err = e.R.Optimize(o); err != nil {
		return nil, err
	}
	if b, ok := literalEBV(e.L); ok {
		if b {
			return &Literal{V: xdm.Bool(true)}, nil
		}
		return toBoolean(e.R), nil
	}
	return e, nil
}

// If is the conditional expression.
type If struct {
	Cond, Then, Else Expr
}

func (e *If) SeqType() xdm.SeqType { return e.Then.SeqType().Union(e.Else.SeqType()) }
func (e *If) Size() int            { return sizeOf(e.SeqType()) }
func (e *If) String() string {
	return fmt.Sprintf("if (%s) then %s else %s", e.Cond, e.Then, e.Else)
}

// Iter implements Expr.
func (e *If) Iter(qc *Context) (xdm.Iter, error) {
	br, err := e.branch(qc)
	if err != nil {
		return nil, err
	}
	return br.Iter(qc)
}

// Value implements Expr.
func (e *If) Value(qc *Context) (xdm.Value, error) {
	br, err := e.branch(qc)
	if err != nil {
		return nil, err
	}
	return br.Value(qc)
}

func (e *If) branch(qc *Context) (Expr, error) {
	ok, err := ebv(qc, e.Cond)
	if err != nil {
		return nil, err
	}
	if ok {
		return e.Then, nil
	}
	return e.Else, nil
}

// Optimize drops the branch that a constant condition never selects.
func (e *If) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if e.Cond, err = e.Cond.Optimize(o); err != nil {
		return nil, err
	}
	if e.Then, err = e.Then.Optimize(o); err != nil {
		return nil, err
	}
	if e.Else, err = e.Else.Optimize(o); err != nil {
		return nil, err
	}
	if b, ok := literalEBV(e.Cond); ok {
		o.note("if: constant condition %t", b)
		if b {
			return e.Then, nil
		}
		return e.Else, nil
	}
	return e, nil
}

func ebv(qc *Context, e Expr) (bool, error) {
	v, err := e.Value(qc)
	if err != nil {
		return false, err
	}
	return v.EBV()
}

// literalEBV returns the effective boolean value of a literal expression.
func literalEBV(e Expr) (bool, bool) {
	l, ok := e.(*Literal)
	if !ok {
		return false, false
	}
	b, err := l.V.EBV()
	if err != nil {
		return false, false
	}
	return b, true
}

// toBoolean wraps e in fn:boolean unless it is already boolean.
func toBoolean(e Expr) Expr {
	if e.SeqType() == xdm.SeqBoolean {
		return e
	}
	call, err := NewCall("boolean", []Expr{e})
	if err != nil {
		return e
	}
	return call
}
