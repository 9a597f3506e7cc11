package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/xdm"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		in   any
		want []string
	}{
		{"x", []string{"x"}},
		{3, []string{"3"}},
		{2.5, []string{"2.5"}},
		{true, []string{"true"}},
		{nil, []string{}},
		{[]any{1, "a", []any{2, 3}}, []string{"1", "a", "2", "3"}},
	}
	for _, tt := range tests {
		v, err := ValueOf(tt.in)
		require.NoError(t, err)
		got := make([]string, v.Size())
		for i := range got {
			got[i] = v.ItemAt(i).String()
		}
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	v, err := ValueOf(7)
	require.NoError(t, err)
	assert.Equal(t, xdm.TypeInteger, v.ItemAt(0).Type())

	_, err = ValueOf(map[string]any{"a": 1})
	assert.Error(t, err)
}

func TestValuesOf(t *testing.T) {
	vars, err := ValuesOf(map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, xdm.Int(1), vars["n"])

	vars, err = ValuesOf(nil)
	require.NoError(t, err)
	assert.Nil(t, vars)

	_, err = ValuesOf(map[string]any{"bad": struct{}{}})
	assert.ErrorContains(t, err, "$bad")
}
