package query

import (
	"strings"

	"github.com/roach88/xqdb/internal/xdm"
)

// For iterates over its source for every incoming tuple, binding each item
// and optionally its 1-based position and its score. With Empty set, an
// empty source still yields one tuple binding the empty sequence at
// position 0 with score 0.
type For struct {
	Var   *Var
	Pos   *Var
	Score *Var
	Empty bool
	Expr  Expr
}

// Declares implements Clause.
func (c *For) Declares() []*Var {
	vars := []*Var{c.Var}
	if c.Pos != nil {
		vars = append(vars, c.Pos)
	}
	if c.Score != nil {
		vars = append(vars, c.Score)
	}
	return vars
}

// Eval implements Clause.
func (c *For) Eval(sub Eval) Eval {
	return &forEval{c: c, sub: sub}
}

type forEval struct {
	c    *For
	sub  Eval
	iter xdm.Iter
	p    int64
	done bool
}

// Next implements the clause state machine: drain the live source, emit
// the allowing-empty tuple once for an empty source, otherwise advance the
// preceding clauses and re-derive the source.
func (e *forEval) Next(qc *Context) (bool, error) {
	if e.done {
		return false, nil
	}
	if err := qc.CheckStop(); err != nil {
		return false, err
	}
	c := e.c
	for {
		if e.iter != nil {
			it, err := e.iter.Next()
			if err != nil {
				return false, err
			}
			if it != nil {
				e.p++
				e.bind(qc, it, xdm.Int(e.p), xdm.Dbl(it.Score()))
				return true, nil
			}
			if c.Empty && e.p == 0 {
				e.bind(qc, xdm.Empty, xdm.Int(0), xdm.Dbl(0))
				e.iter = nil
				return true, nil
			}
		}
		ok, err := e.sub.Next(qc)
		if err != nil {
			return false, err
		}
		if !ok {
			e.done, e.iter = true, nil
			return false, nil
		}
		if e.iter, err = c.Expr.Iter(qc); err != nil {
			return false, err
		}
		e.p = 0
	}
}

func (e *forEval) bind(qc *Context, v xdm.Value, pos xdm.Int, score xdm.Dbl) {
	qc.Set(e.c.Var, v)
	if e.c.Pos != nil {
		qc.Set(e.c.Pos, pos)
	}
	if e.c.Score != nil {
		qc.Set(e.c.Score, score)
	}
}

func (c *For) optimize(o *Optimizer) error {
	expr, err := c.Expr.Optimize(o)
	if err != nil {
		return err
	}
	c.Expr = expr
	st := expr.SeqType()
	occ := xdm.OccOne
	if c.Empty {
		occ = xdm.OccZeroOrOne
	}
	c.Var.Type = xdm.SeqType{Type: st.Type, Occ: occ}
	if c.Pos != nil {
		c.Pos.Type = xdm.SeqInteger
	}
	if c.Score != nil {
		c.Score.Type = xdm.SeqDouble
	}
	return nil
}

func (c *For) calcSize(n int) int {
	sz := c.Expr.Size()
	switch {
	case sz < 0:
		return -1
	case sz > 0:
		return sz * n
	case c.Empty:
		return n
	}
	return 0
}

func (c *For) calcOcc(o xdm.Occ) xdm.Occ {
	src := c.Expr.SeqType().Occ
	if c.Empty {
		src.Min = max(src.Min, 1)
		if src.Max == 0 {
			src.Max = 1
		}
	}
	return o.Mul(src)
}

// asLet returns the let clauses equivalent to c when its source is
// exactly one item: the item binding, then the position, then the score.
func (c *For) asLet() []Clause {
	out := []Clause{&Let{Var: c.Var, Expr: c.Expr}}
	if c.Pos != nil {
		out = append(out, &Let{Var: c.Pos, Expr: &Literal{V: xdm.Int(1)}})
	}
	if c.Score != nil {
		out = append(out, &Let{Var: c.Score, Score: true, Expr: &VarRef{Var: c.Var}})
	}
	return out
}

// String implements Clause.
func (c *For) String() string {
	var sb strings.Builder
	sb.WriteString("for " + c.Var.String())
	if c.Empty {
		sb.WriteString(" allowing empty")
	}
	if c.Pos != nil {
		sb.WriteString(" at " + c.Pos.String())
	}
	if c.Score != nil {
		sb.WriteString(" score " + c.Score.String())
	}
	sb.WriteString(" in " + c.Expr.String())
	return sb.String()
}
