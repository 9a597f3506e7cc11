package xdm

import "fmt"

// Unbounded is the Max of an occurrence without upper bound.
const Unbounded = -1

// Occ is a cardinality range [Min, Max]. Max is Unbounded for "many".
type Occ struct {
	Min, Max int
}

// The occurrence indicators of sequence types.
var (
	OccZero       = Occ{0, 0}
	OccZeroOrOne  = Occ{0, 1}
	OccOne        = Occ{1, 1}
	OccOneOrMore  = Occ{1, Unbounded}
	OccZeroOrMore = Occ{0, Unbounded}
)

// OccOfSize returns the occurrence of a value with n items, or
// OccZeroOrMore if n is negative (unknown).
func OccOfSize(n int) Occ {
	if n < 0 {
		return OccZeroOrMore
	}
	return Occ{n, n}
}

// String returns the occurrence indicator.
func (o Occ) String() string {
	switch o {
	case OccZero:
		return "0"
	case OccZeroOrOne:
		return "?"
	case OccOne:
		return ""
	case OccOneOrMore:
		return "+"
	case OccZeroOrMore:
		return "*"
	}
	if o.Max == Unbounded {
		return fmt.Sprintf("{%d,}", o.Min)
	}
	return fmt.Sprintf("{%d,%d}", o.Min, o.Max)
}

// Contains reports whether n items satisfy o.
func (o Occ) Contains(n int) bool {
	return n >= o.Min && (o.Max == Unbounded || n <= o.Max)
}

// Zero reports whether o only allows the empty sequence.
func (o Occ) Zero() bool { return o.Max == 0 }

// Add returns the occurrence of the concatenation of two sequences.
func (o Occ) Add(p Occ) Occ {
	r := Occ{Min: o.Min + p.Min, Max: Unbounded}
	if o.Max != Unbounded && p.Max != Unbounded {
		r.Max = o.Max + p.Max
	}
	return r
}

// Mul returns the occurrence of p repeated once per item of o.
func (o Occ) Mul(p Occ) Occ {
	r := Occ{Min: o.Min * p.Min}
	switch {
	case o.Max == 0 || p.Max == 0:
		r.Max = 0
	case o.Max == Unbounded || p.Max == Unbounded:
		r.Max = Unbounded
	default:
		r.Max = o.Max * p.Max
	}
	return r
}

// Union returns the smallest occurrence containing both o and p.
func (o Occ) Union(p Occ) Occ {
	r := Occ{Min: min(o.Min, p.Min), Max: Unbounded}
	if o.Max != Unbounded && p.Max != Unbounded {
		r.Max = max(o.Max, p.Max)
	}
	return r
}

// Norm maps o to the nearest enclosing occurrence indicator: zero,
// zero-or-one, exactly-one, one-or-more or zero-or-more.
func (o Occ) Norm() Occ {
	r := Occ{Min: min(o.Min, 1)}
	switch {
	case o.Max == 0:
		r.Max = 0
	case o.Max == 1:
		r.Max = 1
	default:
		r.Max = Unbounded
	}
	return r
}

// SeqType is a sequence type: an item type with an occurrence.
type SeqType struct {
	Type Type
	Occ  Occ
}

// Common sequence types.
var (
	SeqEmpty     = SeqType{TypeItem, OccZero}
	SeqItems     = SeqType{TypeItem, OccZeroOrMore}
	SeqBoolean   = SeqType{TypeBoolean, OccOne}
	SeqInteger   = SeqType{TypeInteger, OccOne}
	SeqDouble    = SeqType{TypeDouble, OccOne}
	SeqString    = SeqType{TypeString, OccOne}
	SeqIntegers  = SeqType{TypeInteger, OccZeroOrMore}
	SeqAtomicOpt = SeqType{TypeAtomic, OccZeroOrOne}
	SeqNodes     = SeqType{TypeNode, OccZeroOrMore}
)

// String returns the sequence type syntax, e.g. "xs:integer+".
func (s SeqType) String() string {
	if s.Occ.Zero() {
		return "empty-sequence()"
	}
	return s.Type.String() + s.Occ.String()
}

// One reports whether s is exactly one item.
func (s SeqType) One() bool { return s.Occ == OccOne }

// ZeroOrOne reports whether s has at most one item.
func (s SeqType) ZeroOrOne() bool { return s.Occ.Max == 0 || s.Occ.Max == 1 }

// Union returns the sequence type of a value that is either s or o.
func (s SeqType) Union(o SeqType) SeqType {
	switch {
	case s.Occ.Zero():
		return SeqType{o.Type, o.Occ.Union(OccZero)}
	case o.Occ.Zero():
		return SeqType{s.Type, s.Occ.Union(OccZero)}
	}
	return SeqType{s.Type.Union(o.Type), s.Occ.Union(o.Occ)}
}

// Matches reports whether v is an instance of s: its size satisfies s.Occ
// and every item is an instance of s.Type.
func (s SeqType) Matches(v Value) bool {
	n := v.Size()
	if !s.Occ.Contains(n) {
		return false
	}
	if n == 0 || v.SeqType().Type.InstanceOf(s.Type) {
		return true
	}
	for i := range n {
		if !v.ItemAt(i).Type().InstanceOf(s.Type) {
			return false
		}
	}
	return true
}

// WithOcc returns s with its occurrence replaced.
func (s SeqType) WithOcc(o Occ) SeqType { return SeqType{s.Type, o} }

