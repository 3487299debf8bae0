package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/solatis/ducktest/internal/types"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func duckFlags(t *testing.T, set map[string]string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	for _, field := range types.DuckFields {
		fs.String(field, types.DuckLiteral, "")
	}
	for k, v := range set {
		require.NoError(t, fs.Set(k, v))
	}
	return fs
}

func TestBuildRecord_Defaults(t *testing.T) {
	rec, err := buildRecord("", duckFlags(t, nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"looks":  types.DuckLiteral,
		"swims":  types.DuckLiteral,
		"quacks": types.DuckLiteral,
	}, rec)
}

func TestBuildRecord_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goose.yaml")
	require.NoError(t, os.WriteFile(path, []byte("looks: like a duck\nswims: like a duck\nname: Gerald\n"), 0o644))

	rec, err := buildRecord(path, duckFlags(t, map[string]string{"quacks": "honk"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"looks":  "like a duck",
		"swims":  "like a duck",
		"quacks": "honk",
		"name":   "Gerald",
	}, rec)
}

func TestBuildRecord_FileMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("looks: like a duck\n"), 0o644))

	rec, err := buildRecord(path, duckFlags(t, nil))
	require.NoError(t, err)
	assert.NotContains(t, rec, "swims")
}

func TestBuildRecord_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a mapping\n"), 0o644))

	_, err := buildRecord(path, duckFlags(t, nil))
	assert.Error(t, err)

	_, err = buildRecord(filepath.Join(t.TempDir(), "missing.yaml"), duckFlags(t, nil))
	assert.Error(t, err)
}

func TestVerdict(t *testing.T) {
	assert.Equal(t, "It's probably a duck.", verdict(true))
	assert.Equal(t, "It's probably NOT a duck.", verdict(false))
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(os.Stderr, "debug", "text")
	assert.NoError(t, err)
	_, err = newLogger(os.Stderr, "loud", "json")
	assert.Error(t, err)
	_, err = newLogger(os.Stderr, "info", "xml")
	assert.Error(t, err)
}
