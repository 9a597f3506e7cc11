package xdm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_NativeWhenHomogeneous(t *testing.T) {
	var b Builder
	for i := range 100 {
		b.Add(Int(i))
	}
	v := b.Value()

	seq, ok := v.(*IntSeq)
	require.True(t, ok, "got %T", v)
	assert.Equal(t, 100, seq.Size())
	assert.Equal(t, Int(99), seq.ItemAt(99))
	assert.Equal(t, 0, b.Len(), "Value resets the builder")
}

func TestBuilder_Heterogeneous(t *testing.T) {
	b := NewBuilder(1)
	b.Add(Int(1))
	b.Add(Dbl(2))
	v := b.Value()

	_, ok := v.(*ItemSeq)
	assert.True(t, ok)
	assert.Equal(t, SeqType{TypeNumeric, OccOneOrMore}, v.SeqType())
}

func TestBuilder_SmallValues(t *testing.T) {
	var b Builder
	assert.Equal(t, Empty, b.Value())

	b.Add(Str("x"))
	assert.Equal(t, Str("x"), b.Value())
}

func TestBuilder_AddValue(t *testing.T) {
	var b Builder
	b.AddValue(mustRange(t, 1, 10))
	b.AddValue(Empty)
	b.AddValue(Int(11))
	v := b.Value()

	require.Equal(t, 11, v.Size())
	assert.Equal(t, Int(11), v.ItemAt(10))
}

func TestBuilder_ValueIsImmutable(t *testing.T) {
	var b Builder
	b.Add(Int(1))
	b.Add(Str("a"))
	v := b.Value()

	b.Add(Str("changed"))
	b.Add(Str("changed"))
	_ = b.Value()

	assert.Equal(t, Int(1), v.ItemAt(0))
	assert.Equal(t, Str("a"), v.ItemAt(1))
}

func TestCollect(t *testing.T) {
	v, err := Collect(Strs("a", "b", "c").Iter())
	require.NoError(t, err)
	assert.Equal(t, []Item{Str("a"), Str("b"), Str("c")}, Items(v))
}
