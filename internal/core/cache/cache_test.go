package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key string

func TestTTLCache_GetAddDelete(t *testing.T) {
	c := New[key, int]("test", time.Minute, time.Minute, nil)

	require.NoError(t, c.Add("a", 1))
	require.Error(t, c.Add("a", 2), "Add must refuse an existing key")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, c.Len())

	var evicted []key
	c.OnEvicted(func(k key, _ int) { evicted = append(evicted, k) })
	c.Delete("a")

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []key{"a"}, evicted)
}

func TestTTLCache_Expiry(t *testing.T) {
	c := New[key, string]("test", 100*time.Millisecond, time.Hour, nil)

	var evicted []key
	c.OnEvicted(func(k key, _ string) { evicted = append(evicted, k) })

	require.NoError(t, c.Add("stale", "x"))
	require.NoError(t, c.Add("fresh", "y"))

	time.Sleep(60 * time.Millisecond)
	_, ok := c.Touch("fresh")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("stale")
	assert.False(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok, "Touch should have restarted the TTL")

	c.DeleteExpired()
	assert.Equal(t, []key{"stale"}, evicted)
}

func TestTTLCache_Flush(t *testing.T) {
	c := New[key, int]("test", time.Minute, time.Minute, nil)
	require.NoError(t, c.Add("a", 1))
	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_Keys(t *testing.T) {
	c := New[key, int]("test", time.Minute, time.Minute, nil)
	require.NoError(t, c.Add("a", 1))
	require.NoError(t, c.Add("b", 2))

	assert.ElementsMatch(t, []key{"a", "b"}, c.Keys())
}
