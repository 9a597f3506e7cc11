package node

import (
	"fmt"

	"github.com/roach88/xqdb/internal/table"
	"github.com/roach88/xqdb/internal/xdm"
)

// Axis is a navigation axis.
type Axis uint8

const (
	AxisSelf Axis = iota
	AxisChild
	AxisAttribute
	AxisDescendant
	AxisDescendantOrSelf
	AxisParent
	AxisAncestor
	AxisAncestorOrSelf
	AxisFollowing
	AxisFollowingSibling
)

var axisNames = [...]string{
	AxisSelf:             "self",
	AxisChild:            "child",
	AxisAttribute:        "attribute",
	AxisDescendant:       "descendant",
	AxisDescendantOrSelf: "descendant-or-self",
	AxisParent:           "parent",
	AxisAncestor:         "ancestor",
	AxisAncestorOrSelf:   "ancestor-or-self",
	AxisFollowing:        "following",
	AxisFollowingSibling: "following-sibling",
}

func (a Axis) String() string {
	if int(a) < len(axisNames) {
		return axisNames[a]
	}
	return fmt.Sprintf("axis(%d)", uint8(a))
}

// Reverse reports whether the axis yields nodes in reverse document order.
func (a Axis) Reverse() bool {
	return a == AxisParent || a == AxisAncestor || a == AxisAncestorOrSelf
}

// ParseAxis resolves an axis name.
func ParseAxis(name string) (Axis, bool) {
	for i, s := range axisNames {
		if s == name {
			return Axis(i), true
		}
	}
	return 0, false
}

// AxisIter yields the nodes of one axis from one origin. Next returns nil
// once the axis is exhausted and keeps returning nil afterwards.
type AxisIter struct {
	axis   Axis
	origin *Node
	pos    int
	end    int
	cur    *Node
	done   bool
}

// Axis returns a fresh iterator over the axis a from n.
func (n *Node) Axis(a Axis) *AxisIter {
	it := &AxisIter{axis: a, origin: n, pos: -1}
	t, pre, k := n.t, n.pre, n.kind
	switch a {
	case AxisChild:
		if k.HasChildren() {
			it.pos, it.end = pre+t.AttSize(pre, k), pre+t.Size(pre, k)
		}
	case AxisAttribute:
		if k == table.KindElem {
			it.pos, it.end = pre+1, pre+t.AttSize(pre, k)
		}
	case AxisDescendant, AxisDescendantOrSelf:
		it.pos, it.end = pre+t.AttSize(pre, k), pre+t.Size(pre, k)
	case AxisFollowing:
		root := n.tableRoot()
		it.pos, it.end = pre+t.Size(pre, k), root+t.Size(root, t.Kind(root))
	case AxisFollowingSibling:
		if par, ok := t.Parent(pre, k); ok && k != table.KindAttr {
			it.pos, it.end = pre+t.Size(pre, k), par+t.Size(par, t.Kind(par))
		}
	case AxisSelf, AxisParent, AxisAncestor, AxisAncestorOrSelf:
	default:
		panic(fmt.Sprintf("node: invalid axis %d", uint8(a)))
	}
	return it
}

// Child returns an iterator over the children of n.
func (n *Node) Child() *AxisIter { return n.Axis(AxisChild) }

// Attribute returns an iterator over the attributes of n.
func (n *Node) Attribute() *AxisIter { return n.Axis(AxisAttribute) }

// Descendant returns an iterator over the descendants of n.
func (n *Node) Descendant() *AxisIter { return n.Axis(AxisDescendant) }

// DescendantOrSelf returns an iterator over n and its descendants.
func (n *Node) DescendantOrSelf() *AxisIter { return n.Axis(AxisDescendantOrSelf) }

// Ancestor returns an iterator over the ancestors of n, nearest first.
func (n *Node) Ancestor() *AxisIter { return n.Axis(AxisAncestor) }

// AncestorOrSelf returns an iterator over n and its ancestors.
func (n *Node) AncestorOrSelf() *AxisIter { return n.Axis(AxisAncestorOrSelf) }

// Following returns an iterator over the nodes after n in document order,
// excluding its descendants and attributes.
func (n *Node) Following() *AxisIter { return n.Axis(AxisFollowing) }

// FollowingSibling returns an iterator over the siblings after n.
func (n *Node) FollowingSibling() *AxisIter { return n.Axis(AxisFollowingSibling) }

// Next returns the next node or nil.
func (it *AxisIter) Next() *Node {
	if it.done {
		return nil
	}
	n := it.next()
	if n == nil {
		it.done = true
	}
	return n
}

func (it *AxisIter) next() *Node {
	o := it.origin
	t := o.t
	switch it.axis {
	case AxisSelf:
		it.done = true
		return o
	case AxisParent:
		it.done = true
		return o.Parent()
	case AxisAncestor, AxisAncestorOrSelf:
		switch {
		case it.cur == nil && it.axis == AxisAncestorOrSelf:
			it.cur = o
		case it.cur == nil:
			it.cur = o.Parent()
		default:
			it.cur = it.cur.Parent()
		}
		return it.cur
	case AxisDescendantOrSelf:
		if it.cur == nil {
			it.cur = o
			return o
		}
		fallthrough
	case AxisDescendant:
		if it.pos >= it.end {
			return nil
		}
		n := New(t, it.pos)
		it.pos += t.AttSize(it.pos, n.kind)
		return n
	case AxisChild, AxisFollowingSibling:
		if it.pos < 0 || it.pos >= it.end {
			return nil
		}
		n := New(t, it.pos)
		it.pos += t.Size(it.pos, n.kind)
		if it.axis == AxisChild {
			n.parent, n.parentDone = o, true
		}
		return n
	case AxisAttribute:
		if it.pos < 0 || it.pos >= it.end {
			return nil
		}
		n := New(t, it.pos)
		n.parent, n.parentDone = o, true
		it.pos++
		return n
	case AxisFollowing:
		for it.pos < it.end && t.Kind(it.pos) == table.KindAttr {
			it.pos++
		}
		if it.pos >= it.end {
			return nil
		}
		n := New(t, it.pos)
		it.pos += t.AttSize(it.pos, n.kind)
		return n
	}
	return nil
}

// Collect drains the iterator.
func (it *AxisIter) Collect() []*Node {
	var out []*Node
	for n := it.Next(); n != nil; n = it.Next() {
		out = append(out, n)
	}
	return out
}

// Items adapts the iterator to xdm.Iter.
func (it *AxisIter) Items() xdm.Iter {
	return xdm.IterFunc(func() (xdm.Item, error) {
		if n := it.Next(); n != nil {
			return n, nil
		}
		return nil, nil
	})
}

// tableRoot returns the position of the top-level node enclosing n.
func (n *Node) tableRoot() int {
	p, k := n.pre, n.kind
	for {
		par, ok := n.t.Parent(p, k)
		if !ok {
			return p
		}
		p, k = par, n.t.Kind(par)
	}
}
