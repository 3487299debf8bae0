package duck

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/ducktest/internal/binding"
	"github.com/solatis/ducktest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

const how = "like a duck"

func newTester() *DuckTester {
	return NewDuckTester(binding.NewSession(""))
}

func TestIsItADuck(t *testing.T) {
	tests := []struct {
		name string
		rec  MapRecord
		want bool
	}{
		{
			name: "all three like a duck",
			rec:  MapRecord{"looks": how, "swims": how, "quacks": how},
			want: true,
		},
		{
			name: "quacks like a goose",
			rec:  MapRecord{"looks": how, "swims": how, "quacks": "it's a goose"},
			want: false,
		},
		{
			name: "looks differs",
			rec:  MapRecord{"looks": "like a swan", "swims": how, "quacks": how},
			want: false,
		},
		{
			name: "swims differs",
			rec:  MapRecord{"looks": how, "swims": "like a rock", "quacks": how},
			want: false,
		},
		{
			name: "case sensitive",
			rec:  MapRecord{"looks": "Like A Duck", "swims": how, "quacks": how},
			want: false,
		},
		{
			name: "trailing whitespace is not trimmed",
			rec:  MapRecord{"looks": how + " ", "swims": how, "quacks": how},
			want: false,
		},
		{
			name: "extra fields ignored",
			rec:  MapRecord{"looks": how, "swims": how, "quacks": how, "flies": "south"},
			want: true,
		},
		{
			name: "non-string value rendered as text",
			rec:  MapRecord{"looks": how, "swims": how, "quacks": float64(3)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTester().IsItADuck(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsItADuck_MissingField(t *testing.T) {
	for _, missing := range types.DuckFields {
		t.Run(missing, func(t *testing.T) {
			rec := MapRecord{"looks": how, "swims": how, "quacks": how}
			delete(rec, missing)

			got, err := newTester().IsItADuck(rec)
			require.Error(t, err)
			assert.False(t, got)
			assert.True(t, errors.Is(err, types.ErrFieldNotFound))

			fae, ok := AsFieldAccessError(err)
			require.True(t, ok)
			assert.Equal(t, missing, fae.Key)
		})
	}
}

func TestIsItADuck_MissingFieldAfterMismatch(t *testing.T) {
	// looks already differs; the absent quacks must still surface.
	rec := MapRecord{"looks": "like a goose", "swims": how}
	_, err := newTester().IsItADuck(rec)
	require.ErrorIs(t, err, types.ErrFieldNotFound)
}

func TestIsItADuck_RecordAdapters(t *testing.T) {
	jrec, err := JSONRecord(json.RawMessage(`{"looks": "like a duck", "swims": "like a duck", "quacks": "like a duck"}`))
	require.NoError(t, err)

	srec, err := structpb.NewStruct(map[string]any{"looks": how, "swims": how, "quacks": how})
	require.NoError(t, err)

	for name, rec := range map[string]Record{
		"json":   jrec,
		"struct": NewStructRecord(srec),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := newTester().IsItADuck(rec)
			require.NoError(t, err)
			assert.True(t, got)
		})
	}

	t.Run("nil struct is empty", func(t *testing.T) {
		_, err := newTester().IsItADuck(NewStructRecord(nil))
		require.ErrorIs(t, err, types.ErrFieldNotFound)
	})
}

func TestIsItADuck_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	fieldGen := gen.OneGenOf(gen.Const(how), gen.AnyString())

	properties.Property("idempotent", prop.ForAll(
		func(looks, swims, quacks string) bool {
			rec := MapRecord{"looks": looks, "swims": swims, "quacks": quacks}
			tester := newTester()
			first, err1 := tester.IsItADuck(rec)
			second, err2 := tester.IsItADuck(rec)
			return err1 == nil && err2 == nil && first == second
		},
		fieldGen, fieldGen, fieldGen,
	))

	properties.Property("duck iff all three match", prop.ForAll(
		func(looks, swims, quacks string) bool {
			rec := MapRecord{"looks": looks, "swims": swims, "quacks": quacks}
			got, err := newTester().IsItADuck(rec)
			want := looks == how && swims == how && quacks == how
			return err == nil && got == want
		},
		fieldGen, fieldGen, fieldGen,
	))

	properties.TestingRun(t)
}
