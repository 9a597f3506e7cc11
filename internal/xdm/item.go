package xdm

import (
	"math"
	"strconv"
	"strings"
)

// Int is an xs:integer.
type Int int64

func (Int) Size() int                         { return 1 }
func (i Int) ItemAt(int) Item                 { return i }
func (i Int) Iter() Iter                      { return ValueIter(i) }
func (i Int) WriteTo(buf []Item, off int) int { return WriteItem(i, buf, off) }
func (i Int) EBV() (bool, error)              { return i != 0, nil }
func (Int) SeqType() SeqType                  { return SeqInteger }
func (Int) Type() Type                        { return TypeInteger }
func (Int) Score() float64                    { return 0 }
func (i Int) String() string                  { return strconv.FormatInt(int64(i), 10) }

// Dbl is an xs:double.
type Dbl float64

func (Dbl) Size() int                         { return 1 }
func (d Dbl) ItemAt(int) Item                 { return d }
func (d Dbl) Iter() Iter                      { return ValueIter(d) }
func (d Dbl) WriteTo(buf []Item, off int) int { return WriteItem(d, buf, off) }
func (Dbl) SeqType() SeqType                  { return SeqDouble }
func (Dbl) Type() Type                        { return TypeDouble }
func (Dbl) Score() float64                    { return 0 }
func (d Dbl) String() string                  { return FormatDouble(float64(d)) }

// EBV is false for zero and NaN.
func (d Dbl) EBV() (bool, error) {
	f := float64(d)
	return f != 0 && !math.IsNaN(f), nil
}

// Str is an xs:string.
type Str string

func (Str) Size() int                         { return 1 }
func (s Str) ItemAt(int) Item                 { return s }
func (s Str) Iter() Iter                      { return ValueIter(s) }
func (s Str) WriteTo(buf []Item, off int) int { return WriteItem(s, buf, off) }
func (s Str) EBV() (bool, error)              { return s != "", nil }
func (Str) SeqType() SeqType                  { return SeqString }
func (Str) Type() Type                        { return TypeString }
func (Str) Score() float64                    { return 0 }
func (s Str) String() string                  { return string(s) }

// Untyped is an xs:untypedAtomic, the atomized value of a node.
type Untyped string

func (Untyped) Size() int                         { return 1 }
func (u Untyped) ItemAt(int) Item                 { return u }
func (u Untyped) Iter() Iter                      { return ValueIter(u) }
func (u Untyped) WriteTo(buf []Item, off int) int { return WriteItem(u, buf, off) }
func (u Untyped) EBV() (bool, error)              { return u != "", nil }
func (Untyped) SeqType() SeqType                  { return SeqType{TypeUntyped, OccOne} }
func (Untyped) Type() Type                        { return TypeUntyped }
func (Untyped) Score() float64                    { return 0 }
func (u Untyped) String() string                  { return string(u) }

// Bool is an xs:boolean.
type Bool bool

func (Bool) Size() int                         { return 1 }
func (b Bool) ItemAt(int) Item                 { return b }
func (b Bool) Iter() Iter                      { return ValueIter(b) }
func (b Bool) WriteTo(buf []Item, off int) int { return WriteItem(b, buf, off) }
func (b Bool) EBV() (bool, error)              { return bool(b), nil }
func (Bool) SeqType() SeqType                  { return SeqBoolean }
func (Bool) Type() Type                        { return TypeBoolean }
func (Bool) Score() float64                    { return 0 }
func (b Bool) String() string                  { return strconv.FormatBool(bool(b)) }

// FormatDouble formats f in the canonical xs:double lexical form: plain
// decimals for magnitudes in [1e-6, 1e6), scientific notation otherwise.
func FormatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}
	if a := math.Abs(f); a >= 1e-6 && a < 1e6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}
