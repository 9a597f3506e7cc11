package query

import (
	"strings"

	"github.com/roach88/xqdb/internal/xdm"
)

// SwitchCase is one case clause: the return expression is selected if any
// test matches the operand.
type SwitchCase struct {
	Tests  []Expr
	Return Expr
}

// Switch selects the return expression of the first case whose test value
// equals the atomized operand. The empty sequence matches only the empty
// sequence; values of incomparable types never match.
type Switch struct {
	Operand Expr
	Cases   []SwitchCase
	Default Expr
}

// SeqType implements Expr.
func (s *Switch) SeqType() xdm.SeqType {
	st := s.Default.SeqType()
	for _, c := range s.Cases {
		st = st.Union(c.Return.SeqType())
	}
	return st
}

func (s *Switch) Size() int { return sizeOf(s.SeqType()) }

// String implements Expr.
func (s *Switch) String() string {
	var sb strings.Builder
	sb.WriteString("switch (" + s.Operand.String() + ")")
	for _, c := range s.Cases {
		for _, t := range c.Tests {
			sb.WriteString(" case " + t.String())
		}
		sb.WriteString(" return " + c.Return.String())
	}
	sb.WriteString(" default return " + s.Default.String())
	return sb.String()
}

// Iter implements Expr.
func (s *Switch) Iter(qc *Context) (xdm.Iter, error) {
	br, err := s.branch(qc)
	if err != nil {
		return nil, err
	}
	return br.Iter(qc)
}

// Value implements Expr.
func (s *Switch) Value(qc *Context) (xdm.Value, error) {
	br, err := s.branch(qc)
	if err != nil {
		return nil, err
	}
	return br.Value(qc)
}

func (s *Switch) branch(qc *Context) (Expr, error) {
	v, err := s.Operand.Value(qc)
	if err != nil {
		return nil, err
	}
	op, err := xdm.AtomizeOpt(v, "switch")
	if err != nil {
		return nil, err
	}
	for _, c := range s.Cases {
		for _, t := range c.Tests {
			tv, err := t.Value(qc)
			if err != nil {
				return nil, err
			}
			it, err := xdm.AtomizeOpt(tv, "case")
			if err != nil {
				return nil, err
			}
			if switchMatch(op, it) {
				return c.Return, nil
			}
		}
	}
	return s.Default, nil
}

// switchMatch compares two optional atomic items. NaN matches NaN.
func switchMatch(a, b xdm.Item) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if xdm.IsNaN(a) || xdm.IsNaN(b) {
		return xdm.IsNaN(a) && xdm.IsNaN(b)
	}
	c, err := xdm.Compare(a, b)
	return err == nil && c == 0
}

// Optimize selects the branch statically if the operand and all tests are
// constant.
func (s *Switch) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if s.Operand, err = s.Operand.Optimize(o); err != nil {
		return nil, err
	}
	constant := literals(s.Operand)
	for i := range s.Cases {
		c := &s.Cases[i]
		if err := optimizeAll(o, c.Tests); err != nil {
			return nil, err
		}
		if c.Return, err = c.Return.Optimize(o); err != nil {
			return nil, err
		}
		constant = constant && literals(c.Tests...)
	}
	if s.Default, err = s.Default.Optimize(o); err != nil {
		return nil, err
	}
	if !constant {
		return s, nil
	}
	br, err := s.branch(o.qc)
	if err != nil {
		o.note("switch: no static branch: %v", err)
		return s, nil
	}
	o.note("switch: constant operand %s", s.Operand)
	return br, nil
}
