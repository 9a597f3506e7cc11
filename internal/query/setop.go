package query

import (
	"slices"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/xdm"
)

// SetOp is a node set operator other than union.
type SetOp uint8

const (
	SetIntersect SetOp = iota
	SetExcept
)

func (op SetOp) String() string {
	if op == SetExcept {
		return "except"
	}
	return "intersect"
}

// NodeSet combines two node sequences by identity. The result is in
// document order without duplicates.
type NodeSet struct {
	Op   SetOp
	L, R Expr
}

func (s *NodeSet) Iter(qc *Context) (xdm.Iter, error) { return valueIter(s, qc) }
func (s *NodeSet) Size() int                          { return -1 }
func (s *NodeSet) String() string                     { return "(" + s.L.String() + " " + s.Op.String() + " " + s.R.String() + ")" }

// SeqType implements Expr.
func (s *NodeSet) SeqType() xdm.SeqType {
	typ := s.L.SeqType().Type
	if s.Op == SetIntersect {
		typ = typ.Union(s.R.SeqType().Type)
	}
	return xdm.SeqType{Type: typ, Occ: xdm.OccZeroOrMore}
}

// Value implements Expr.
func (s *NodeSet) Value(qc *Context) (xdm.Value, error) {
	l, err := nodeOperand(qc, s.L, s.Op.String())
	if err != nil {
		return nil, err
	}
	r, err := nodeOperand(qc, s.R, s.Op.String())
	if err != nil {
		return nil, err
	}
	r = node.Sort(r)
	keep := s.Op == SetIntersect
	sorted := node.Sort(l)
	out := sorted[:0]
	for _, n := range sorted {
		_, found := slices.BinarySearchFunc(r, n, (*node.Node).Diff)
		if found == keep {
			out = append(out, n)
		}
	}
	return nodeValue(out), nil
}

// Optimize implements Expr.
func (s *NodeSet) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if s.L, err = s.L.Optimize(o); err != nil {
		return nil, err
	}
	if s.R, err = s.R.Optimize(o); err != nil {
		return nil, err
	}
	return s, nil
}
