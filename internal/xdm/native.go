package xdm

import (
	"fmt"
	"math"
)

// nativeEBV is the effective boolean value of a native sequence: defined
// only for singletons.
func nativeEBV(v Value) (bool, error) {
	switch v.Size() {
	case 0:
		return false, nil
	case 1:
		return v.ItemAt(0).EBV()
	}
	return false, TypeError(CodeEBV, "effective boolean value not defined for %s", v.SeqType())
}

func nativeType(t Type, n int) SeqType {
	if n == 1 {
		return SeqType{t, OccOne}
	}
	return SeqType{t, OccOneOrMore}
}

// IntSeq is a native sequence of integers.
type IntSeq struct{ vals []int64 }

// Ints returns a value holding vals. vals is copied.
func Ints(vals ...int64) Value {
	switch len(vals) {
	case 0:
		return Empty
	case 1:
		return Int(vals[0])
	}
	return &IntSeq{vals: append([]int64(nil), vals...)}
}

func (s *IntSeq) Size() int                       { return len(s.vals) }
func (s *IntSeq) ItemAt(i int) Item               { return Int(s.vals[i]) }
func (s *IntSeq) Iter() Iter                      { return ValueIter(s) }
func (s *IntSeq) WriteTo(buf []Item, off int) int { return writeIndexed(s, buf, off) }
func (s *IntSeq) EBV() (bool, error)              { return nativeEBV(s) }
func (s *IntSeq) SeqType() SeqType                { return nativeType(TypeInteger, len(s.vals)) }

// DblSeq is a native sequence of doubles.
type DblSeq struct{ vals []float64 }

// Dbls returns a value holding vals. vals is copied.
func Dbls(vals ...float64) Value {
	switch len(vals) {
	case 0:
		return Empty
	case 1:
		return Dbl(vals[0])
	}
	return &DblSeq{vals: append([]float64(nil), vals...)}
}

func (s *DblSeq) Size() int                       { return len(s.vals) }
func (s *DblSeq) ItemAt(i int) Item               { return Dbl(s.vals[i]) }
func (s *DblSeq) Iter() Iter                      { return ValueIter(s) }
func (s *DblSeq) WriteTo(buf []Item, off int) int { return writeIndexed(s, buf, off) }
func (s *DblSeq) EBV() (bool, error)              { return nativeEBV(s) }
func (s *DblSeq) SeqType() SeqType                { return nativeType(TypeDouble, len(s.vals)) }

// StrSeq is a native sequence of strings.
type StrSeq struct{ vals []string }

// Strs returns a value holding vals. vals is copied.
func Strs(vals ...string) Value {
	switch len(vals) {
	case 0:
		return Empty
	case 1:
		return Str(vals[0])
	}
	return &StrSeq{vals: append([]string(nil), vals...)}
}

func (s *StrSeq) Size() int                       { return len(s.vals) }
func (s *StrSeq) ItemAt(i int) Item               { return Str(s.vals[i]) }
func (s *StrSeq) Iter() Iter                      { return ValueIter(s) }
func (s *StrSeq) WriteTo(buf []Item, off int) int { return writeIndexed(s, buf, off) }
func (s *StrSeq) EBV() (bool, error)              { return nativeEBV(s) }
func (s *StrSeq) SeqType() SeqType                { return nativeType(TypeString, len(s.vals)) }

// BoolSeq is a native sequence of booleans.
type BoolSeq struct{ vals []bool }

// Bools returns a value holding vals. vals is copied.
func Bools(vals ...bool) Value {
	switch len(vals) {
	case 0:
		return Empty
	case 1:
		return Bool(vals[0])
	}
	return &BoolSeq{vals: append([]bool(nil), vals...)}
}

func (s *BoolSeq) Size() int                       { return len(s.vals) }
func (s *BoolSeq) ItemAt(i int) Item               { return Bool(s.vals[i]) }
func (s *BoolSeq) Iter() Iter                      { return ValueIter(s) }
func (s *BoolSeq) WriteTo(buf []Item, off int) int { return writeIndexed(s, buf, off) }
func (s *BoolSeq) EBV() (bool, error)              { return nativeEBV(s) }
func (s *BoolSeq) SeqType() SeqType                { return nativeType(TypeBoolean, len(s.vals)) }

// RangeSeq is the integer range [Start, Start+N) without a backing array.
type RangeSeq struct {
	Start int64
	N     int
}

// Range returns the integers from lo to hi inclusive. A range with more
// items than an int can count is an XPDY0130 error.
func Range(lo, hi int64) (Value, error) {
	switch {
	case hi < lo:
		return Empty, nil
	case hi == lo:
		return Int(lo), nil
	}
	span := uint64(hi) - uint64(lo)
	if span >= uint64(math.MaxInt) {
		return nil, TypeError(CodeLimit, "range %d to %d has too many items", lo, hi)
	}
	return &RangeSeq{Start: lo, N: int(span) + 1}, nil
}

func (r *RangeSeq) Size() int                       { return r.N }
func (r *RangeSeq) Iter() Iter                      { return ValueIter(r) }
func (r *RangeSeq) WriteTo(buf []Item, off int) int { return writeIndexed(r, buf, off) }
func (r *RangeSeq) EBV() (bool, error)              { return nativeEBV(r) }
func (r *RangeSeq) SeqType() SeqType                { return nativeType(TypeInteger, r.N) }
func (r *RangeSeq) String() string                  { return fmt.Sprintf("%d to %d", r.Start, r.Start+int64(r.N)-1) }

// ItemAt implements Value.
func (r *RangeSeq) ItemAt(i int) Item {
	if i < 0 || i >= r.N {
		panic(fmt.Sprintf("xdm: range index %d out of [0,%d)", i, r.N))
	}
	return Int(r.Start + int64(i))
}
