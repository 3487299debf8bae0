// Package cache provides a typed in-memory TTL cache over go-cache.
package cache

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLCache stores values of one type under string-like keys with a
// per-entry expiry. Safe for concurrent use.
type TTLCache[K ~string, V any] struct {
	useCase string
	ttl     time.Duration
	cache   *gocache.Cache
	logger  *slog.Logger
}

// New creates a cache whose entries expire ttl after their last Set or
// Touch. Expired entries are swept every cleanupInterval.
func New[K ~string, V any](useCase string, ttl, cleanupInterval time.Duration, logger *slog.Logger) *TTLCache[K, V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTLCache[K, V]{
		useCase: useCase,
		ttl:     ttl,
		cache:   gocache.New(ttl, cleanupInterval),
		logger:  logger,
	}
}

// OnEvicted registers fn for entries removed by expiry or Delete.
func (c *TTLCache[K, V]) OnEvicted(fn func(key K, value V)) {
	c.cache.OnEvicted(func(k string, v interface{}) {
		typed, ok := v.(V)
		if !ok {
			c.logger.Error("wrong type on eviction", "cache", c.useCase, "key", k)
			return
		}
		fn(K(k), typed)
	})
}

// Get returns the value under key.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V

	value, found := c.cache.Get(string(key))
	if !found {
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		c.logger.Error("wrong type assertion when getting value", "cache", c.useCase, "key", key)
		return zero, false
	}
	return v, true
}

// Touch returns the value under key and restarts its TTL.
func (c *TTLCache[K, V]) Touch(key K) (V, bool) {
	v, found := c.Get(key)
	if found {
		c.cache.Set(string(key), v, c.ttl)
	}
	return v, found
}

// Add stores value only if key is absent.
func (c *TTLCache[K, V]) Add(key K, value V) error {
	return c.cache.Add(string(key), value, c.ttl)
}

// Delete removes key, firing the eviction callback if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.cache.Delete(string(key))
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *TTLCache[K, V]) Len() int {
	return c.cache.ItemCount()
}

// Keys returns the keys of unexpired entries in no particular order.
func (c *TTLCache[K, V]) Keys() []K {
	items := c.cache.Items()
	keys := make([]K, 0, len(items))
	for k := range items {
		keys = append(keys, K(k))
	}
	return keys
}

// DeleteExpired sweeps expired entries immediately.
func (c *TTLCache[K, V]) DeleteExpired() {
	c.cache.DeleteExpired()
}

// Flush removes every entry without firing eviction callbacks.
func (c *TTLCache[K, V]) Flush() {
	c.cache.Flush()
}
