package query

import "github.com/roach88/xqdb/internal/xdm"

// InstanceOf tests whether the value of E matches a sequence type.
type InstanceOf struct {
	E    Expr
	Type xdm.SeqType
}

func (e *InstanceOf) Iter(qc *Context) (xdm.Iter, error) { return valueIter(e, qc) }
func (e *InstanceOf) SeqType() xdm.SeqType               { return xdm.SeqBoolean }
func (e *InstanceOf) Size() int                          { return 1 }
func (e *InstanceOf) String() string {
	return "(" + e.E.String() + " instance of " + e.Type.String() + ")"
}

// Value implements Expr.
func (e *InstanceOf) Value(qc *Context) (xdm.Value, error) {
	v, err := e.E.Value(qc)
	if err != nil {
		return nil, err
	}
	return xdm.Bool(e.Type.Matches(v)), nil
}

// Optimize implements Expr.
func (e *InstanceOf) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if e.E, err = e.E.Optimize(o); err != nil {
		return nil, err
	}
	if literals(e.E) {
		return o.fold(e), nil
	}
	return e, nil
}
