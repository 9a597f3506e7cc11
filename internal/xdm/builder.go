package xdm

// Builder accumulates items of unknown count. The zero value is ready to use.
// Value freezes the items into an immutable value and resets the builder.
type Builder struct {
	items []Item
	n     int
}

// NewBuilder returns a builder with room for capacity items.
func NewBuilder(capacity int) *Builder {
	return &Builder{items: make([]Item, max(capacity, 0))}
}

// Len returns the number of items added.
func (b *Builder) Len() int { return b.n }

// Add appends one item.
func (b *Builder) Add(it Item) {
	b.grow(1)
	b.items[b.n] = it
	b.n++
}

// AddValue appends all items of v.
func (b *Builder) AddValue(v Value) {
	size := v.Size()
	if size == 0 {
		return
	}
	b.grow(size)
	b.n += v.WriteTo(b.items, b.n)
}

func (b *Builder) grow(need int) {
	if b.n+need <= len(b.items) {
		return
	}
	c := max(len(b.items)*2, 8)
	for c < b.n+need {
		c *= 2
	}
	items := make([]Item, c)
	copy(items, b.items[:b.n])
	b.items = items
}

// Value returns the built value. Homogeneous atomic sequences become native
// sequences.
func (b *Builder) Value() Value {
	items := b.items[:b.n]
	b.items, b.n = nil, 0
	switch len(items) {
	case 0:
		return Empty
	case 1:
		return items[0]
	}
	if v := native(items); v != nil {
		return v
	}
	exact := make([]Item, len(items))
	copy(exact, items)
	return newItemSeq(exact)
}

// native converts items to a native sequence if they all share one of the
// native Go types.
func native(items []Item) Value {
	switch items[0].(type) {
	case Int:
		vals := make([]int64, len(items))
		for i, it := range items {
			v, ok := it.(Int)
			if !ok {
				return nil
			}
			vals[i] = int64(v)
		}
		return &IntSeq{vals: vals}
	case Dbl:
		vals := make([]float64, len(items))
		for i, it := range items {
			v, ok := it.(Dbl)
			if !ok {
				return nil
			}
			vals[i] = float64(v)
		}
		return &DblSeq{vals: vals}
	case Str:
		vals := make([]string, len(items))
		for i, it := range items {
			v, ok := it.(Str)
			if !ok {
				return nil
			}
			vals[i] = string(v)
		}
		return &StrSeq{vals: vals}
	case Bool:
		vals := make([]bool, len(items))
		for i, it := range items {
			v, ok := it.(Bool)
			if !ok {
				return nil
			}
			vals[i] = bool(v)
		}
		return &BoolSeq{vals: vals}
	}
	return nil
}
