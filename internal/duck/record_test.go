package duck

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/solatis/ducktest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"like a duck", "like a duck"},
		{float64(1), "1"},
		{float64(1.5), "1.5"},
		{int64(-7), "-7"},
		{42, "42"},
		{true, "true"},
		{false, "false"},
		{json.Number("3.14"), "3.14"},
		{[]any{"a", float64(1)}, `["a",1]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T/%v", tt.in, tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestMapRecord_NullIsPresent(t *testing.T) {
	v, err := MapRecord{"looks": nil}.Get("looks")
	require.NoError(t, err)
	assert.Equal(t, "null", v)
}

func TestJSONRecord(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		rec, err := JSONRecord(json.RawMessage(`{"looks": "like a duck", "n": 2}`))
		require.NoError(t, err)
		v, err := rec.Get("n")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("array rejected", func(t *testing.T) {
		_, err := JSONRecord(json.RawMessage(`["looks"]`))
		require.ErrorIs(t, err, types.ErrNotAnObject)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := JSONRecord(json.RawMessage(`{looks}`))
		require.Error(t, err)
	})

	t.Run("too many fields", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("{")
		for i := 0; i <= types.MaxRecordFields; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `"f%d": %d`, i, i)
		}
		b.WriteString("}")
		_, err := JSONRecord(json.RawMessage(b.String()))
		require.ErrorIs(t, err, types.ErrTooManyFields)
	})
}

func TestStructRecord(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"looks": "like a duck", "swims": true})
	require.NoError(t, err)
	rec := NewStructRecord(s)

	v, err := rec.Get("swims")
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	_, err = rec.Get("quacks")
	fae, ok := AsFieldAccessError(err)
	require.True(t, ok)
	assert.Equal(t, "quacks", fae.Key)
}

func TestRecordFrom(t *testing.T) {
	s, _ := structpb.NewStruct(map[string]any{"looks": "x"})

	for name, arg := range map[string]any{
		"map":        map[string]any{"looks": "x"},
		"map record": MapRecord{"looks": "x"},
		"struct":     s,
		"raw json":   json.RawMessage(`{"looks": "x"}`),
	} {
		t.Run(name, func(t *testing.T) {
			rec, err := RecordFrom(arg)
			require.NoError(t, err)
			v, err := rec.Get("looks")
			require.NoError(t, err)
			assert.Equal(t, "x", v)
		})
	}

	for name, arg := range map[string]any{
		"string": "duck",
		"number": float64(1),
		"nil":    nil,
		"list":   []any{"looks"},
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := RecordFrom(arg)
			require.ErrorIs(t, err, types.ErrNotAnObject)
		})
	}
}
