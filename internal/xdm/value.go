package xdm

// Value is an immutable sequence of items.
type Value interface {
	// Size returns the number of items.
	Size() int
	// ItemAt returns the item at i. i must be in [0, Size()).
	ItemAt(i int) Item
	// Iter returns a fresh iterator over the items.
	Iter() Iter
	// WriteTo copies items into buf starting at buf[off] and returns the
	// number copied, which is less than Size() if buf is too short.
	WriteTo(buf []Item, off int) int
	// EBV returns the effective boolean value.
	EBV() (bool, error)
	// SeqType returns the static type of the value.
	SeqType() SeqType
}

// Item is a single item. It is also a value of size one.
type Item interface {
	Value
	// Type returns the item type.
	Type() Type
	// Score returns the relevance score, 0 unless set.
	Score() float64
	// String returns the string value.
	String() string
}

// Iter is a pull iterator. Next returns a nil item once exhausted.
type Iter interface {
	Next() (Item, error)
}

// IterFunc adapts a function to Iter.
type IterFunc func() (Item, error)

// Next implements Iter.
func (f IterFunc) Next() (Item, error) { return f() }

// ValueIter returns an iterator over the items of v.
func ValueIter(v Value) Iter {
	return &valueIter{v: v}
}

type valueIter struct {
	v Value
	i int
}

func (it *valueIter) Next() (Item, error) {
	if it.i >= it.v.Size() {
		return nil, nil
	}
	item := it.v.ItemAt(it.i)
	it.i++
	return item, nil
}

// Remaining returns the number of items it has left to yield, or -1 if
// that is only known by draining it.
func Remaining(it Iter) int {
	if vi, ok := it.(*valueIter); ok {
		return vi.v.Size() - vi.i
	}
	return -1
}

// Collect drains it into a value.
func Collect(it Iter) (Value, error) {
	var b Builder
	for {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return b.Value(), nil
		}
		b.Add(item)
	}
}

// Items returns the items of v as a fresh slice.
func Items(v Value) []Item {
	out := make([]Item, v.Size())
	v.WriteTo(out, 0)
	return out
}

// WriteItem implements Value.WriteTo for single items.
func WriteItem(it Item, buf []Item, off int) int {
	if off >= len(buf) {
		return 0
	}
	buf[off] = it
	return 1
}

// writeIndexed implements Value.WriteTo through ItemAt.
func writeIndexed(v Value, buf []Item, off int) int {
	n := min(v.Size(), len(buf)-off)
	for i := 0; i < n; i++ {
		buf[off+i] = v.ItemAt(i)
	}
	return max(n, 0)
}
