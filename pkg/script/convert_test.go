package script

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "None"},
		{"int", 3, "3"},
		{"uint8", uint8(7), "7"},
		{"float32", float32(0.5), "0.5"},
		{"strings", []string{"a", "b"}, `["a", "b"]`},
		{"ints via reflection", []int{1, 2}, "[1, 2]"},
		{"typed map", map[string]int{"k": 1}, `{"k": 1}`},
		{"nested", map[string]any{"items": []any{true, nil}}, `{"items": [True, None]}`},
		{"starlark value", starlark.String("x"), `"x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := GoToStarlark(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestGoToStarlarkUnsupported(t *testing.T) {
	_, err := GoToStarlark(make(chan int))
	assert.ErrorContains(t, err, "unsupported type")

	_, err = GoToStarlark(map[int]string{1: "a"})
	assert.ErrorContains(t, err, "unsupported type")

	_, err = GoToStarlark([]any{1, struct{}{}})
	assert.ErrorContains(t, err, "list index 1")
}

func TestToGo(t *testing.T) {
	big := starlark.MakeUint64(math.MaxUint64)

	tuple := starlark.Tuple{starlark.MakeInt(1), starlark.String("a")}
	got, err := ToGo(tuple)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "a"}, got)

	got, err = ToGo(big)
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", got)

	dict := starlark.NewDict(1)
	require.NoError(t, dict.SetKey(starlark.MakeInt(1), starlark.None))
	_, err = ToGo(dict)
	assert.ErrorContains(t, err, "dict key must be string")
}
