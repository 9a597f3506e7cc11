package query

import "github.com/roach88/xqdb/internal/xdm"

// Where passes on the incoming tuples for which its condition is true.
type Where struct {
	Cond Expr
}

// Declares implements Clause.
func (c *Where) Declares() []*Var { return nil }

// Eval implements Clause.
func (c *Where) Eval(sub Eval) Eval { return &whereEval{c: c, sub: sub} }

type whereEval struct {
	c   *Where
	sub Eval
}

func (e *whereEval) Next(qc *Context) (bool, error) {
	if err := qc.CheckStop(); err != nil {
		return false, err
	}
	for {
		ok, err := e.sub.Next(qc)
		if err != nil || !ok {
			return false, err
		}
		ok, err = ebv(qc, e.c.Cond)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
}

func (c *Where) optimize(o *Optimizer) error {
	cond, err := c.Cond.Optimize(o)
	if err != nil {
		return err
	}
	c.Cond = toBoolean(cond)
	return nil
}

func (c *Where) calcSize(n int) int {
	if n == 0 {
		return 0
	}
	return -1
}

func (c *Where) calcOcc(o xdm.Occ) xdm.Occ { return xdm.Occ{Min: 0, Max: o.Max} }

// String implements Clause.
func (c *Where) String() string { return "where " + c.Cond.String() }
