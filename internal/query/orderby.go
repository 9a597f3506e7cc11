package query

import (
	"slices"
	"strings"

	"github.com/roach88/xqdb/internal/xdm"
)

// OrderKey is one sort key of an order by clause.
type OrderKey struct {
	Expr          Expr
	Desc          bool
	EmptyGreatest bool
}

// String returns the key syntax.
func (k OrderKey) String() string {
	s := k.Expr.String()
	if k.Desc {
		s += " descending"
	}
	if k.EmptyGreatest {
		s += " empty greatest"
	}
	return s
}

// OrderBy sorts the incoming tuples. Sorting is always stable; Stable only
// records how the clause was written.
type OrderBy struct {
	Keys   []OrderKey
	Stable bool

	// vars are the variables bound by the preceding clauses.
	vars []*Var
}

// Declares implements Clause.
func (c *OrderBy) Declares() []*Var { return nil }

// Eval implements Clause.
func (c *OrderBy) Eval(sub Eval) Eval { return &orderEval{c: c, sub: sub} }

type orderTuple struct {
	vals []xdm.Value
	keys []xdm.Item
}

type orderEval struct {
	c      *OrderBy
	sub    Eval
	tuples []orderTuple
	i      int
	loaded bool
}

func (e *orderEval) Next(qc *Context) (bool, error) {
	if err := qc.CheckStop(); err != nil {
		return false, err
	}
	if !e.loaded {
		if err := e.load(qc); err != nil {
			return false, err
		}
		e.loaded = true
	}
	if e.i >= len(e.tuples) {
		e.tuples = nil
		return false, nil
	}
	t := e.tuples[e.i]
	e.i++
	for j, v := range e.c.vars {
		qc.Set(v, t.vals[j])
	}
	return true, nil
}

// load drains the preceding clauses and sorts the captured tuples.
func (e *orderEval) load(qc *Context) error {
	for {
		ok, err := e.sub.Next(qc)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t := orderTuple{
			vals: make([]xdm.Value, len(e.c.vars)),
			keys: make([]xdm.Item, len(e.c.Keys)),
		}
		for j, v := range e.c.vars {
			if t.vals[j], err = qc.Get(v); err != nil {
				return err
			}
		}
		for j, k := range e.c.Keys {
			v, err := k.Expr.Value(qc)
			if err != nil {
				return err
			}
			if t.keys[j], err = xdm.AtomizeOpt(v, "order by"); err != nil {
				return err
			}
		}
		e.tuples = append(e.tuples, t)
	}

	var sortErr error
	slices.SortStableFunc(e.tuples, func(a, b orderTuple) int {
		for j, k := range e.c.Keys {
			c, err := compareKeys(a.keys[j], b.keys[j], k)
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return 0
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return sortErr
}

// compareKeys orders two sort key values. The empty sequence sorts first
// unless the key says empty greatest; descending order reverses the
// result after that placement.
func compareKeys(a, b xdm.Item, k OrderKey) (int, error) {
	var c int
	switch {
	case a == nil && b == nil:
		c = 0
	case a == nil:
		c = -1
		if k.EmptyGreatest {
			c = 1
		}
	case b == nil:
		c = 1
		if k.EmptyGreatest {
			c = -1
		}
	default:
		var err error
		if c, err = xdm.Compare(a, b); err != nil {
			return 0, err
		}
	}
	if k.Desc {
		c = -c
	}
	return c, nil
}

func (c *OrderBy) optimize(o *Optimizer) error {
	for i := range c.Keys {
		expr, err := c.Keys[i].Expr.Optimize(o)
		if err != nil {
			return err
		}
		c.Keys[i].Expr = expr
	}
	return nil
}

func (c *OrderBy) calcSize(n int) int        { return n }
func (c *OrderBy) calcOcc(o xdm.Occ) xdm.Occ { return o }

// String implements Clause.
func (c *OrderBy) String() string {
	keys := make([]string, len(c.Keys))
	for i, k := range c.Keys {
		keys[i] = k.String()
	}
	prefix := "order by "
	if c.Stable {
		prefix = "stable order by "
	}
	return prefix + strings.Join(keys, ", ")
}
