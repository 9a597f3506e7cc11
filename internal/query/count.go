package query

import "github.com/roach88/xqdb/internal/xdm"

// Count binds the 1-based number of each tuple it passes on.
type Count struct {
	Var *Var
}

// Declares implements Clause.
func (c *Count) Declares() []*Var { return []*Var{c.Var} }

// Eval implements Clause.
func (c *Count) Eval(sub Eval) Eval { return &countEval{c: c, sub: sub} }

type countEval struct {
	c   *Count
	sub Eval
	n   int64
}

func (e *countEval) Next(qc *Context) (bool, error) {
	if err := qc.CheckStop(); err != nil {
		return false, err
	}
	ok, err := e.sub.Next(qc)
	if err != nil || !ok {
		return false, err
	}
	e.n++
	qc.Set(e.c.Var, xdm.Int(e.n))
	return true, nil
}

func (c *Count) optimize(*Optimizer) error {
	c.Var.Type = xdm.SeqInteger
	return nil
}

func (c *Count) calcSize(n int) int        { return n }
func (c *Count) calcOcc(o xdm.Occ) xdm.Occ { return o }

// String implements Clause.
func (c *Count) String() string { return "count " + c.Var.String() }
