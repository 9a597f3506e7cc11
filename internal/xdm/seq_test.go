package xdm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEBV_Rules(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"empty", Empty, false},
		{"true", Bool(true), true},
		{"false", Bool(false), false},
		{"empty string", Str(""), false},
		{"string", Str("x"), true},
		{"zero", Int(0), false},
		{"integer", Int(3), true},
		{"NaN", Dbl(math.NaN()), false},
		{"double", Dbl(0.5), true},
		{"untyped", Untyped("0"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.EBV()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEBV_NativeSequence(t *testing.T) {
	for _, v := range []Value{Ints(1, 2), Dbls(1, 2), Strs("a", "b"), Bools(true, true), mustRange(t, 1, 3)} {
		_, err := v.EBV()
		require.Error(t, err, "%T", v)
		assert.True(t, IsTypeError(err))
		assert.Equal(t, CodeEBV, ErrorCode(err))
	}

	single := &IntSeq{vals: []int64{7}}
	ok, err := single.EBV()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEBV_MixedSequence(t *testing.T) {
	_, err := FromItems(Int(1), Str("a")).EBV()
	assert.True(t, IsTypeError(err))

	_, err = (&Func{Arity: 0}).EBV()
	assert.True(t, IsTypeError(err))
}

func TestNative_WriteTo(t *testing.T) {
	v := Ints(1, 2, 3, 4)

	buf := make([]Item, 6)
	assert.Equal(t, 4, v.WriteTo(buf, 1))
	assert.Equal(t, []Item{nil, Int(1), Int(2), Int(3), Int(4), nil}, buf)

	short := make([]Item, 3)
	assert.Equal(t, 2, v.WriteTo(short, 1))
	assert.Equal(t, []Item{nil, Int(1), Int(2)}, short)

	assert.Equal(t, 0, v.WriteTo(short, 3))
}

func TestNative_ConstructorsCopy(t *testing.T) {
	src := []int64{1, 2}
	v := Ints(src...)
	src[0] = 99
	assert.Equal(t, Int(1), v.ItemAt(0))

	assert.Equal(t, Empty, Ints())
	assert.Equal(t, Str("x"), Strs("x"))
}

func mustRange(t *testing.T, lo, hi int64) Value {
	t.Helper()
	v, err := Range(lo, hi)
	require.NoError(t, err)
	return v
}

func TestRange(t *testing.T) {
	r := mustRange(t, 3, 6)
	require.Equal(t, 4, r.Size())
	assert.Equal(t, Int(3), r.ItemAt(0))
	assert.Equal(t, Int(6), r.ItemAt(3))
	assert.Equal(t, Empty, mustRange(t, 2, 1))
	assert.Equal(t, Int(5), mustRange(t, 5, 5))
	assert.Panics(t, func() { r.ItemAt(4) })
}

func TestRange_Extremes(t *testing.T) {
	r := mustRange(t, math.MaxInt64-2, math.MaxInt64)
	require.Equal(t, 3, r.Size())
	assert.Equal(t, Int(math.MaxInt64), r.ItemAt(2))

	r = mustRange(t, 1, math.MaxInt64)
	assert.Equal(t, math.MaxInt64, r.Size())
	assert.Equal(t, Int(math.MaxInt64), r.ItemAt(r.Size()-1))

	r = mustRange(t, math.MinInt64, math.MinInt64+1)
	assert.Equal(t, 2, r.Size())

	for _, tc := range []struct{ lo, hi int64 }{
		{math.MinInt64, math.MaxInt64},
		{-1, math.MaxInt64},
		{math.MinInt64, 0},
	} {
		_, err := Range(tc.lo, tc.hi)
		require.Error(t, err, "%d to %d", tc.lo, tc.hi)
		assert.Equal(t, CodeLimit, ErrorCode(err))
	}
}

func TestIter_Independent(t *testing.T) {
	v := Strs("a", "b")
	a, b := v.Iter(), v.Iter()

	x, _ := a.Next()
	y, _ := a.Next()
	z, _ := b.Next()
	end, err := a.Next()

	require.NoError(t, err)
	assert.Equal(t, Str("a"), x)
	assert.Equal(t, Str("b"), y)
	assert.Equal(t, Str("a"), z)
	assert.Nil(t, end)
}

func TestRemaining(t *testing.T) {
	it := mustRange(t, 1, math.MaxInt64).Iter()
	assert.Equal(t, math.MaxInt64, Remaining(it))
	_, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt64-1, Remaining(it))

	assert.Equal(t, -1, Remaining(IterFunc(func() (Item, error) { return nil, nil })))
}

func TestJoin(t *testing.T) {
	v, err := Join(Int(1), Empty, Ints(2, 3))
	require.NoError(t, err)
	assert.Equal(t, Ints(1, 2, 3), v)

	r := mustRange(t, 1, 100_000)
	v, err = Join(Empty, r)
	require.NoError(t, err)
	assert.Same(t, r, v)

	v, err = Join(r, Str("x"))
	require.NoError(t, err)
	require.IsType(t, &ChainSeq{}, v)
	require.Equal(t, 100_001, v.Size())
	assert.Equal(t, Int(100_000), v.ItemAt(99_999))
	assert.Equal(t, Str("x"), v.ItemAt(100_000))
	assert.Equal(t, TypeAtomic, v.SeqType().Type)
	_, err = v.EBV()
	assert.Equal(t, CodeEBV, ErrorCode(err))

	buf := make([]Item, 3)
	assert.Equal(t, 2, v.WriteTo(buf, 1))
	assert.Equal(t, Int(1), buf[1])

	_, err = Join(mustRange(t, 1, math.MaxInt64), Int(0))
	require.Error(t, err)
	assert.Equal(t, CodeLimit, ErrorCode(err))
}

func TestConcat(t *testing.T) {
	v := Concat(Int(1), Empty, Ints(2, 3), Str("x"))
	require.Equal(t, 4, v.Size())
	assert.Equal(t, Str("x"), v.ItemAt(3))
	assert.Equal(t, TypeAtomic, v.SeqType().Type)
}

func TestFunc_Arity(t *testing.T) {
	f := &Func{Name: "add", Arity: 2, Body: func(args []Value) (Value, error) {
		return Int(args[0].ItemAt(0).(Int) + args[1].ItemAt(0).(Int)), nil
	}}

	got, err := f.Call([]Value{Int(1), Int(2)})
	require.NoError(t, err)
	assert.Equal(t, Int(3), got)

	_, err = f.Call([]Value{Int(1)})
	require.Error(t, err)
	assert.True(t, IsArityError(err))
	assert.Contains(t, err.Error(), "add#2")
}

func TestFormatDouble(t *testing.T) {
	tests := map[float64]string{
		1:           "1",
		1.5:         "1.5",
		-0.25:       "-0.25",
		1e6:         "1.0E6",
		1.25e-7:     "1.25E-7",
		math.Inf(1): "INF",
		0:           "0",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatDouble(in))
	}
	assert.Equal(t, "NaN", FormatDouble(math.NaN()))
}
