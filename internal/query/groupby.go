package query

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/xqdb/internal/xdm"
)

// GroupKey binds one grouping key.
type GroupKey struct {
	Var  *Var
	Expr Expr
}

// GroupBy partitions the incoming tuples by their atomized keys. Each
// group yields one tuple in order of first appearance: the key variables
// hold the key, every other variable of the preceding clauses holds the
// concatenation of its values across the group.
type GroupBy struct {
	Keys []GroupKey

	// rest are the preceding variables that are not grouping keys.
	rest []*Var
}

// Declares implements Clause.
func (c *GroupBy) Declares() []*Var {
	vars := make([]*Var, 0, len(c.Keys)+len(c.rest))
	for _, k := range c.Keys {
		vars = append(vars, k.Var)
	}
	return append(vars, c.rest...)
}

// Eval implements Clause.
func (c *GroupBy) Eval(sub Eval) Eval { return &groupEval{c: c, sub: sub} }

type group struct {
	keys  []xdm.Item
	names []string
	rest  []*xdm.Builder
}

type groupEval struct {
	c      *GroupBy
	sub    Eval
	groups []*group
	i      int
	loaded bool
}

func (e *groupEval) Next(qc *Context) (bool, error) {
	if err := qc.CheckStop(); err != nil {
		return false, err
	}
	if !e.loaded {
		if err := e.load(qc); err != nil {
			return false, err
		}
		e.loaded = true
	}
	if e.i >= len(e.groups) {
		e.groups = nil
		return false, nil
	}
	g := e.groups[e.i]
	e.i++
	for j, k := range e.c.Keys {
		if g.keys[j] == nil {
			qc.Set(k.Var, xdm.Empty)
		} else {
			qc.Set(k.Var, g.keys[j])
		}
	}
	for j, v := range e.c.rest {
		qc.Set(v, g.rest[j].Value())
	}
	return true, nil
}

func (e *groupEval) load(qc *Context) error {
	buckets := make(map[uint64][]*group)
	for {
		ok, err := e.sub.Next(qc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		keys := make([]xdm.Item, len(e.c.Keys))
		names := make([]string, len(e.c.Keys))
		h := xxhash.New()
		for j, k := range e.c.Keys {
			v, err := k.Expr.Value(qc)
			if err != nil {
				return err
			}
			if keys[j], err = xdm.AtomizeOpt(v, "group by"); err != nil {
				return err
			}
			if keys[j] != nil {
				names[j] = xdm.Key(keys[j])
			}
			_, _ = h.WriteString(names[j])
			_, _ = h.Write([]byte{0})
		}

		sum := h.Sum64()
		var g *group
		for _, cand := range buckets[sum] {
			if sameKeys(cand, keys, names) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{keys: keys, names: names, rest: make([]*xdm.Builder, len(e.c.rest))}
			for j := range g.rest {
				g.rest[j] = xdm.NewBuilder(0)
			}
			buckets[sum] = append(buckets[sum], g)
			e.groups = append(e.groups, g)
		}
		for j, v := range e.c.rest {
			val, err := qc.Get(v)
			if err != nil {
				return err
			}
			g.rest[j].AddValue(val)
		}
	}
}

func sameKeys(g *group, keys []xdm.Item, names []string) bool {
	for j := range keys {
		if (g.keys[j] == nil) != (keys[j] == nil) || g.names[j] != names[j] {
			return false
		}
	}
	return true
}

func (c *GroupBy) optimize(o *Optimizer) error {
	for i := range c.Keys {
		expr, err := c.Keys[i].Expr.Optimize(o)
		if err != nil {
			return err
		}
		c.Keys[i].Expr = expr
		c.Keys[i].Var.Type = xdm.SeqAtomicOpt
	}
	for _, v := range c.rest {
		v.Type = xdm.SeqType{Type: v.Type.Type, Occ: xdm.OccZeroOrMore}
	}
	return nil
}

func (c *GroupBy) calcSize(n int) int {
	if n == 0 {
		return 0
	}
	return -1
}

func (c *GroupBy) calcOcc(o xdm.Occ) xdm.Occ {
	return xdm.Occ{Min: min(o.Min, 1), Max: o.Max}
}

// String implements Clause.
func (c *GroupBy) String() string {
	keys := make([]string, len(c.Keys))
	for i, k := range c.Keys {
		keys[i] = k.Var.String() + " := " + k.Expr.String()
	}
	return "group by " + strings.Join(keys, ", ")
}
