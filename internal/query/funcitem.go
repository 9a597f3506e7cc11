package query

import (
	"strings"

	"github.com/roach88/xqdb/internal/xdm"
)

// InlineFunc is an anonymous function expression. Evaluating it captures
// the current variable bindings; calling the resulting function item binds
// the parameters on top of them.
type InlineFunc struct {
	Params []*Var
	Body   Expr
}

func (f *InlineFunc) Iter(qc *Context) (xdm.Iter, error) { return valueIter(f, qc) }
func (f *InlineFunc) SeqType() xdm.SeqType               { return xdm.SeqType{Type: xdm.TypeFunction, Occ: xdm.OccOne} }
func (f *InlineFunc) Size() int                          { return 1 }

// Value implements Expr.
func (f *InlineFunc) Value(qc *Context) (xdm.Value, error) {
	captured := qc.snapshot()
	return &xdm.Func{Arity: len(f.Params), Body: func(args []xdm.Value) (xdm.Value, error) {
		frame := make([]xdm.Value, len(captured))
		copy(frame, captured)
		for i, p := range f.Params {
			frame[p.Slot] = args[i]
		}
		saved, savedFocus := qc.vars, qc.SetFocus(Focus{})
		qc.vars = frame
		defer func() {
			qc.vars = saved
			qc.SetFocus(savedFocus)
		}()
		return f.Body.Value(qc)
	}}, nil
}

// Optimize implements Expr.
func (f *InlineFunc) Optimize(o *Optimizer) (Expr, error) {
	body, err := f.Body.Optimize(o)
	if err != nil {
		return nil, err
	}
	f.Body = body
	return f, nil
}

// String implements Expr.
func (f *InlineFunc) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return "function(" + strings.Join(params, ", ") + ") { " + f.Body.String() + " }"
}

// DynCall calls a function item.
type DynCall struct {
	Fn   Expr
	Args []Expr
}

func (c *DynCall) Iter(qc *Context) (xdm.Iter, error) { return valueIter(c, qc) }
func (c *DynCall) SeqType() xdm.SeqType               { return xdm.SeqItems }
func (c *DynCall) Size() int                          { return -1 }
func (c *DynCall) String() string {
	return c.Fn.String() + "(" + joinExprs(c.Args, ", ") + ")"
}

// Value evaluates the function expression and the arguments and calls the
// function. A wrong argument count is an arity error.
func (c *DynCall) Value(qc *Context) (xdm.Value, error) {
	fv, err := c.Fn.Value(qc)
	if err != nil {
		return nil, err
	}
	var fn *xdm.Func
	if fv.Size() == 1 {
		fn, _ = fv.ItemAt(0).(*xdm.Func)
	}
	if fn == nil {
		return nil, xdm.TypeError(xdm.CodeType, "expected function(*), got %s", fv.SeqType())
	}
	args := make([]xdm.Value, len(c.Args))
	for i, a := range c.Args {
		if args[i], err = a.Value(qc); err != nil {
			return nil, err
		}
	}
	return fn.Call(args)
}

// Optimize implements Expr.
func (c *DynCall) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if c.Fn, err = c.Fn.Optimize(o); err != nil {
		return nil, err
	}
	if err := optimizeAll(o, c.Args); err != nil {
		return nil, err
	}
	return c, nil
}
