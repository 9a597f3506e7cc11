package xdm

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// AtomizeItem returns the typed value of it. Nodes atomize to their string
// value as xs:untypedAtomic; functions cannot be atomized.
func AtomizeItem(it Item) (Item, error) {
	t := it.Type()
	switch {
	case t.IsNode():
		return Untyped(it.String()), nil
	case t == TypeFunction:
		return nil, TypeError(CodeAtomize, "cannot atomize %s", it)
	}
	return it, nil
}

// Atomize atomizes every item of v.
func Atomize(v Value) (Value, error) {
	n := v.Size()
	atomic := true
	for i := 0; i < n && atomic; i++ {
		atomic = v.ItemAt(i).Type().IsAtomic()
	}
	if atomic {
		return v, nil
	}
	b := NewBuilder(n)
	for i := range n {
		a, err := AtomizeItem(v.ItemAt(i))
		if err != nil {
			return nil, err
		}
		b.Add(a)
	}
	return b.Value(), nil
}

// AtomizeOpt atomizes v and requires at most one item. It returns nil for
// the empty sequence.
func AtomizeOpt(v Value, what string) (Item, error) {
	switch v.Size() {
	case 0:
		return nil, nil
	case 1:
		return AtomizeItem(v.ItemAt(0))
	}
	return nil, TypeError(CodeType, "%s: expected at most one item, got %s", what, v.SeqType())
}

// ToDouble converts a numeric or untyped item to float64.
func ToDouble(it Item) (float64, error) {
	switch v := it.(type) {
	case Int:
		return float64(v), nil
	case Dbl:
		return float64(v), nil
	case Untyped:
		return parseDouble(string(v))
	}
	a, err := AtomizeItem(it)
	if err != nil {
		return 0, err
	}
	if u, ok := a.(Untyped); ok {
		return parseDouble(string(u))
	}
	return 0, TypeError(CodeType, "%s is not numeric", a.Type())
}

func parseDouble(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "INF", "+INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strings.ContainsAny(s, "xXpP_") || strings.EqualFold(s, "inf") || strings.EqualFold(s, "infinity") {
		return 0, TypeError(CodeCast, "cannot cast %q to xs:double", s)
	}
	return f, nil
}

// IsNaN reports whether it is a double NaN.
func IsNaN(it Item) bool {
	d, ok := it.(Dbl)
	return ok && math.IsNaN(float64(d))
}

// Compare compares two atomic items with value comparison rules: untyped
// operands are treated as strings, numerics compare numerically, and any
// other mix of types is a type error. NaN compares below every number.
func Compare(a, b Item) (int, error) {
	if u, ok := a.(Untyped); ok {
		a = Str(u)
	}
	if u, ok := b.(Untyped); ok {
		b = Str(u)
	}
	ta, tb := a.Type(), b.Type()
	switch {
	case ta.IsNumeric() && tb.IsNumeric():
		if x, ok := a.(Int); ok {
			if y, ok := b.(Int); ok {
				return cmp.Compare(x, y), nil
			}
		}
		x, _ := ToDouble(a)
		y, _ := ToDouble(b)
		return cmp.Compare(x, y), nil
	case ta == TypeString && tb == TypeString:
		return strings.Compare(a.String(), b.String()), nil
	case ta == TypeBoolean && tb == TypeBoolean:
		x, y := bool(a.(Bool)), bool(b.(Bool))
		switch {
		case x == y:
			return 0, nil
		case y:
			return -1, nil
		}
		return 1, nil
	}
	return 0, TypeError(CodeType, "cannot compare %s with %s", ta, tb)
}

// CompareGeneral compares two atomic items with general comparison rules:
// an untyped operand is cast to the type of the other operand first.
func CompareGeneral(a, b Item) (int, error) {
	a, err := castUntyped(a, b)
	if err != nil {
		return 0, err
	}
	b, err = castUntyped(b, a)
	if err != nil {
		return 0, err
	}
	return Compare(a, b)
}

func castUntyped(it, peer Item) (Item, error) {
	u, ok := it.(Untyped)
	if !ok {
		return it, nil
	}
	switch t := peer.Type(); {
	case t.IsNumeric():
		f, err := parseDouble(string(u))
		if err != nil {
			return nil, err
		}
		return Dbl(f), nil
	case t == TypeBoolean:
		switch strings.TrimSpace(string(u)) {
		case "true", "1":
			return Bool(true), nil
		case "false", "0":
			return Bool(false), nil
		}
		return nil, TypeError(CodeCast, "cannot cast %q to xs:boolean", string(u))
	}
	return Str(u), nil
}

// Key returns a canonical key for atomic it: two items have equal keys iff
// they are equal for grouping and duplicate elimination. Numbers compare by
// value across integer and double, NaN equals NaN, untyped values equal
// strings.
func Key(it Item) string {
	switch v := it.(type) {
	case Int:
		return "n:" + strconv.FormatInt(int64(v), 10)
	case Dbl:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return "n:" + strconv.FormatInt(int64(f), 10)
		}
		if math.IsNaN(f) {
			return "n:NaN"
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	case Bool:
		return "b:" + v.String()
	}
	return "s:" + it.String()
}
