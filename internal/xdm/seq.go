package xdm

import (
	"math"
	"sort"
)

// Empty is the empty sequence.
var Empty Value = emptySeq{}

type emptySeq struct{}

func (emptySeq) Size() int               { return 0 }
func (emptySeq) ItemAt(i int) Item       { panic("xdm: ItemAt on empty sequence") }
func (emptySeq) Iter() Iter              { return IterFunc(func() (Item, error) { return nil, nil }) }
func (emptySeq) WriteTo([]Item, int) int { return 0 }
func (emptySeq) EBV() (bool, error)      { return false, nil }
func (emptySeq) SeqType() SeqType        { return SeqEmpty }
func (emptySeq) String() string          { return "()" }

// ItemSeq is a heterogeneous sequence of two or more items.
type ItemSeq struct {
	items []Item
	typ   Type
}

func newItemSeq(items []Item) *ItemSeq {
	typ := items[0].Type()
	for _, it := range items[1:] {
		typ = typ.Union(it.Type())
	}
	return &ItemSeq{items: items, typ: typ}
}

func (s *ItemSeq) Size() int         { return len(s.items) }
func (s *ItemSeq) ItemAt(i int) Item { return s.items[i] }
func (s *ItemSeq) Iter() Iter        { return ValueIter(s) }
func (s *ItemSeq) SeqType() SeqType  { return SeqType{s.typ, OccOneOrMore} }

// WriteTo implements Value.
func (s *ItemSeq) WriteTo(buf []Item, off int) int {
	if off >= len(buf) {
		return 0
	}
	return copy(buf[off:], s.items)
}

// EBV is true if the first item is a node and a type error otherwise.
func (s *ItemSeq) EBV() (bool, error) { return EBV(s) }

// EBV computes the effective boolean value of v: false for the empty
// sequence, true if the first item is a node, the item's own value for
// singletons and a FORG0006 type error for anything else.
func EBV(v Value) (bool, error) {
	n := v.Size()
	if n == 0 {
		return false, nil
	}
	first := v.ItemAt(0)
	if first.Type().IsNode() {
		return true, nil
	}
	if n > 1 {
		return false, TypeError(CodeEBV, "effective boolean value not defined for %s", v.SeqType())
	}
	return first.EBV()
}

// FromItems builds a value from items.
func FromItems(items ...Item) Value {
	var b Builder
	for _, it := range items {
		b.Add(it)
	}
	return b.Value()
}

// Concat returns the concatenation of vs.
func Concat(vs ...Value) Value {
	var b Builder
	for _, v := range vs {
		b.AddValue(v)
	}
	return b.Value()
}

// maxCopy is the largest concatenation Join copies into a fresh value.
const maxCopy = 1 << 16

// Join concatenates vs. Small results are copied like Concat; larger ones
// reference the operands without copying their items. A result with more
// items than an int can count is an XPDY0130 error.
func Join(vs ...Value) (Value, error) {
	parts := make([]Value, 0, len(vs))
	total := 0
	for _, v := range vs {
		n := v.Size()
		if n == 0 {
			continue
		}
		if n > math.MaxInt-total {
			return nil, TypeError(CodeLimit, "sequence has too many items")
		}
		total += n
		parts = append(parts, v)
	}
	switch {
	case len(parts) == 0:
		return Empty, nil
	case len(parts) == 1:
		return parts[0], nil
	case total <= maxCopy:
		return Concat(parts...), nil
	}
	c := &ChainSeq{parts: parts, ends: make([]int, len(parts)), typ: parts[0].SeqType().Type}
	end := 0
	for i, v := range parts {
		end += v.Size()
		c.ends[i] = end
		c.typ = c.typ.Union(v.SeqType().Type)
	}
	return c, nil
}

// ChainSeq is the concatenation of two or more non-empty values.
type ChainSeq struct {
	parts []Value
	ends  []int // ends[i] is the size of parts[:i+1]
	typ   Type
}

// Parts returns the joined values. The slice must not be modified.
func (c *ChainSeq) Parts() []Value { return c.parts }

func (c *ChainSeq) Size() int          { return c.ends[len(c.ends)-1] }
func (c *ChainSeq) Iter() Iter         { return ValueIter(c) }
func (c *ChainSeq) EBV() (bool, error) { return EBV(c) }
func (c *ChainSeq) SeqType() SeqType   { return SeqType{c.typ, OccOneOrMore} }

// ItemAt implements Value.
func (c *ChainSeq) ItemAt(i int) Item {
	k := sort.SearchInts(c.ends, i+1)
	start := 0
	if k > 0 {
		start = c.ends[k-1]
	}
	return c.parts[k].ItemAt(i - start)
}

// WriteTo implements Value.
func (c *ChainSeq) WriteTo(buf []Item, off int) int {
	n := 0
	for _, v := range c.parts {
		if off+n >= len(buf) {
			break
		}
		n += v.WriteTo(buf, off+n)
	}
	return n
}
