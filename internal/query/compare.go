package query

import (
	"fmt"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/xdm"
)

// CmpOp is a comparison operator.
type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var (
	generalNames = [...]string{CmpEq: "=", CmpNe: "!=", CmpLt: "<", CmpLe: "<=", CmpGt: ">", CmpGe: ">="}
	valueNames   = [...]string{CmpEq: "eq", CmpNe: "ne", CmpLt: "lt", CmpLe: "le", CmpGt: "gt", CmpGe: "ge"}
)

// holds reports whether a comparison result c satisfies op.
func (op CmpOp) holds(c int) bool {
	switch op {
	case CmpEq:
		return c == 0
	case CmpNe:
		return c != 0
	case CmpLt:
		return c < 0
	case CmpLe:
		return c <= 0
	case CmpGt:
		return c > 0
	case CmpGe:
		return c >= 0
	}
	return false
}

// compareItems compares with op, treating NaN as unequal to everything.
func (op CmpOp) compareItems(a, b xdm.Item, general bool) (bool, error) {
	var c int
	var err error
	if general {
		c, err = xdm.CompareGeneral(a, b)
	} else {
		c, err = xdm.Compare(a, b)
	}
	if err != nil {
		return false, err
	}
	if xdm.IsNaN(a) || xdm.IsNaN(b) {
		return op == CmpNe, nil
	}
	return op.holds(c), nil
}

// GeneralCmp is an existential comparison (=, !=, <, ...) between two
// sequences: true if any pair of atomized items compares true.
type GeneralCmp struct {
	Op   CmpOp
	L, R Expr
}

func (g *GeneralCmp) Iter(qc *Context) (xdm.Iter, error) { return valueIter(g, qc) }
func (g *GeneralCmp) SeqType() xdm.SeqType               { return xdm.SeqBoolean }
func (g *GeneralCmp) Size() int                          { return 1 }
func (g *GeneralCmp) String() string {
	return fmt.Sprintf("(%s %s %s)", g.L, generalNames[g.Op], g.R)
}

// Value implements Expr.
func (g *GeneralCmp) Value(qc *Context) (xdm.Value, error) {
	lv, err := atomized(qc, g.L)
	if err != nil {
		return nil, err
	}
	rv, err := atomized(qc, g.R)
	if err != nil {
		return nil, err
	}
	for i := range lv.Size() {
		for j := range rv.Size() {
			ok, err := g.Op.compareItems(lv.ItemAt(i), rv.ItemAt(j), true)
			if err != nil {
				return nil, err
			}
			if ok {
				return xdm.Bool(true), nil
			}
		}
	}
	return xdm.Bool(false), nil
}

// Optimize implements Expr.
func (g *GeneralCmp) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if g.L, err = g.L.Optimize(o); err != nil {
		return nil, err
	}
	if g.R, err = g.R.Optimize(o); err != nil {
		return nil, err
	}
	if literals(g.L, g.R) {
		return o.fold(g), nil
	}
	return g, nil
}

func atomized(qc *Context, e Expr) (xdm.Value, error) {
	v, err := e.Value(qc)
	if err != nil {
		return nil, err
	}
	return xdm.Atomize(v)
}

// ValueCmp compares two optional atomic values (eq, ne, lt, ...). An empty
// operand yields the empty sequence.
type ValueCmp struct {
	Op   CmpOp
	L, R Expr
}

func (c *ValueCmp) Iter(qc *Context) (xdm.Iter, error) { return valueIter(c, qc) }
func (c *ValueCmp) Size() int                          { return sizeOf(c.SeqType()) }
func (c *ValueCmp) String() string {
	return fmt.Sprintf("(%s %s %s)", c.L, valueNames[c.Op], c.R)
}

// SeqType implements Expr.
func (c *ValueCmp) SeqType() xdm.SeqType {
	if c.L.SeqType().One() && c.R.SeqType().One() {
		return xdm.SeqBoolean
	}
	return xdm.SeqType{Type: xdm.TypeBoolean, Occ: xdm.OccZeroOrOne}
}

// Value implements Expr.
func (c *ValueCmp) Value(qc *Context) (xdm.Value, error) {
	l, err := atomicOperand(qc, c.L, valueNames[c.Op])
	if err != nil || l == nil {
		return xdm.Empty, err
	}
	r, err := atomicOperand(qc, c.R, valueNames[c.Op])
	if err != nil || r == nil {
		return xdm.Empty, err
	}
	ok, err := c.Op.compareItems(l, r, false)
	if err != nil {
		return nil, err
	}
	return xdm.Bool(ok), nil
}

// Optimize implements Expr.
func (c *ValueCmp) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if c.L, err = c.L.Optimize(o); err != nil {
		return nil, err
	}
	if c.R, err = c.R.Optimize(o); err != nil {
		return nil, err
	}
	if literals(c.L, c.R) {
		return o.fold(c), nil
	}
	return c, nil
}

// NodeOp is a node comparison operator.
type NodeOp uint8

const (
	NodeIs NodeOp = iota
	NodeBefore
	NodeAfter
)

var nodeOpNames = [...]string{NodeIs: "is", NodeBefore: "<<", NodeAfter: ">>"}

// NodeCmp compares the identity or document order of two optional nodes.
type NodeCmp struct {
	Op   NodeOp
	L, R Expr
}

func (c *NodeCmp) Iter(qc *Context) (xdm.Iter, error) { return valueIter(c, qc) }
func (c *NodeCmp) SeqType() xdm.SeqType {
	return xdm.SeqType{Type: xdm.TypeBoolean, Occ: xdm.OccZeroOrOne}
}
func (c *NodeCmp) Size() int { return -1 }
func (c *NodeCmp) String() string {
	return fmt.Sprintf("(%s %s %s)", c.L, nodeOpNames[c.Op], c.R)
}

// Value implements Expr.
func (c *NodeCmp) Value(qc *Context) (xdm.Value, error) {
	l, err := optNode(qc, c.L, nodeOpNames[c.Op])
	if err != nil || l == nil {
		return xdm.Empty, err
	}
	r, err := optNode(qc, c.R, nodeOpNames[c.Op])
	if err != nil || r == nil {
		return xdm.Empty, err
	}
	switch c.Op {
	case NodeIs:
		return xdm.Bool(l.Is(r)), nil
	case NodeBefore:
		return xdm.Bool(l.Diff(r) < 0), nil
	default:
		return xdm.Bool(l.Diff(r) > 0), nil
	}
}

// Optimize implements Expr.
func (c *NodeCmp) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if c.L, err = c.L.Optimize(o); err != nil {
		return nil, err
	}
	if c.R, err = c.R.Optimize(o); err != nil {
		return nil, err
	}
	return c, nil
}

func optNode(qc *Context, e Expr, op string) (*node.Node, error) {
	v, err := e.Value(qc)
	if err != nil {
		return nil, err
	}
	switch v.Size() {
	case 0:
		return nil, nil
	case 1:
		if n, ok := v.ItemAt(0).(*node.Node); ok {
			return n, nil
		}
	}
	return nil, xdm.TypeError(xdm.CodeType, "%s: expected node()?, got %s", op, v.SeqType())
}
