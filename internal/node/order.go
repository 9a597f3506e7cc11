package node

import (
	"cmp"
	"slices"
)

// Diff orders n relative to o in document order: negative if n comes first,
// zero if they are the same node, positive otherwise.
//
// Nodes of one table compare by position. Otherwise both ancestor chains are
// walked to the lowest common ancestor; nodes without one are ordered by
// table id, which is stable for the life of the process.
func (n *Node) Diff(o *Node) int {
	if n.t == o.t {
		return cmp.Compare(n.pre, o.pre)
	}
	na, oa := n.path(), o.path()
	i := 0
	for i < len(na) && i < len(oa) && na[i].Is(oa[i]) {
		i++
	}
	switch {
	case i == 0:
		return cmp.Compare(n.t.ID(), o.t.ID())
	case i == len(na) && i == len(oa):
		return 0
	case i == len(na):
		return -1
	case i == len(oa):
		return 1
	}
	x, y := na[i], oa[i]
	if x.t == y.t {
		return cmp.Compare(x.pre, y.pre)
	}
	return cmp.Compare(x.t.ID(), y.t.ID())
}

// path returns the ancestor-or-self chain of n, root first.
func (n *Node) path() []*Node {
	var out []*Node
	for c := n; c != nil; c = c.Parent() {
		out = append(out, c)
	}
	slices.Reverse(out)
	return out
}

// Sort sorts nodes in document order and removes duplicates.
func Sort(nodes []*Node) []*Node {
	slices.SortStableFunc(nodes, (*Node).Diff)
	return slices.CompactFunc(nodes, (*Node).Is)
}
