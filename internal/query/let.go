package query

import "github.com/roach88/xqdb/internal/xdm"

// Let binds the whole value of its expression, or with Score set the
// average score of its items, once per incoming tuple.
type Let struct {
	Var   *Var
	Score bool
	Expr  Expr
}

// Declares implements Clause.
func (c *Let) Declares() []*Var { return []*Var{c.Var} }

// Eval implements Clause.
func (c *Let) Eval(sub Eval) Eval { return &letEval{c: c, sub: sub} }

type letEval struct {
	c   *Let
	sub Eval
}

func (e *letEval) Next(qc *Context) (bool, error) {
	if err := qc.CheckStop(); err != nil {
		return false, err
	}
	ok, err := e.sub.Next(qc)
	if err != nil || !ok {
		return false, err
	}
	v, err := e.c.Expr.Value(qc)
	if err != nil {
		return false, err
	}
	if e.c.Score {
		v = xdm.Dbl(score(v))
	}
	qc.Set(e.c.Var, v)
	return true, nil
}

// score returns the average score of the items of v, 0 for the empty
// sequence.
func score(v xdm.Value) float64 {
	n := v.Size()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		sum += v.ItemAt(i).Score()
	}
	return sum / float64(n)
}

func (c *Let) optimize(o *Optimizer) error {
	expr, err := c.Expr.Optimize(o)
	if err != nil {
		return err
	}
	c.Expr = expr
	if c.Score {
		c.Var.Type = xdm.SeqDouble
	} else {
		c.Var.Type = expr.SeqType()
	}
	return nil
}

func (c *Let) calcSize(n int) int        { return n }
func (c *Let) calcOcc(o xdm.Occ) xdm.Occ { return o }

// String implements Clause.
func (c *Let) String() string {
	if c.Score {
		return "let score " + c.Var.String() + " := " + c.Expr.String()
	}
	return "let " + c.Var.String() + " := " + c.Expr.String()
}
