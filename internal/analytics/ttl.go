// Package analytics owns the state a dashboard reads between refreshes:
// the current snapshot, the selected project and the derived-value caches.
package analytics

import (
	"sync"
	"time"
)

// TTLCache holds values for a fixed time after they are stored.
type TTLCache[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	gen     uint64
	entries map[K]ttlEntry[V]
}

type ttlEntry[V any] struct {
	value    V
	storedAt time.Time
}

// NewTTLCache returns an empty cache. A nil now uses time.Now.
func NewTTLCache[K comparable, V any](ttl time.Duration, now func() time.Time) *TTLCache[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[K, V]{ttl: ttl, now: now, entries: make(map[K]ttlEntry[V])}
}

// TTL returns the cache's lifetime.
func (c *TTLCache[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the value for k if it was stored less than TTL ago.
func (c *TTLCache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(k)
}

func (c *TTLCache[K, V]) getLocked(k K) (V, bool) {
	e, ok := c.entries[k]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, k)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores v under k.
func (c *TTLCache[K, V]) Put(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = ttlEntry[V]{value: v, storedAt: c.now()}
}

// GetOrCompute returns the cached value or computes, stores and returns a
// fresh one. fn runs with the cache locked.
func (c *TTLCache[K, V]) GetOrCompute(k K, fn func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.getLocked(k); ok {
		return v
	}
	v := fn()
	c.entries[k] = ttlEntry[V]{value: v, storedAt: c.now()}
	return v
}

// GetOrComputeAt is GetOrCompute for a caller that read its inputs at
// generation gen. When the cache has been invalidated since, the value is
// computed and returned but not stored.
func (c *TTLCache[K, V]) GetOrComputeAt(gen uint64, k K, fn func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return fn()
	}
	if v, ok := c.getLocked(k); ok {
		return v
	}
	v := fn()
	c.entries[k] = ttlEntry[V]{value: v, storedAt: c.now()}
	return v
}

// Generation counts invalidations.
func (c *TTLCache[K, V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Invalidate drops every entry and starts a new generation.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	clear(c.entries)
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RenderCache holds derived display strings. An entry is evicted once it
// goes unread for the idle period.
type RenderCache struct {
	idle time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]renderEntry
}

type renderEntry struct {
	value      string
	lastAccess time.Time
}

// NewRenderCache returns an empty render cache. A nil now uses time.Now.
func NewRenderCache(idle time.Duration, now func() time.Time) *RenderCache {
	if now == nil {
		now = time.Now
	}
	return &RenderCache{idle: idle, now: now, entries: make(map[string]renderEntry)}
}

// Get returns the value for key and marks it as used.
func (c *RenderCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	now := c.now()
	if now.Sub(e.lastAccess) >= c.idle {
		delete(c.entries, key)
		return "", false
	}
	e.lastAccess = now
	c.entries[key] = e
	return e.value, true
}

// Put stores value under key.
func (c *RenderCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = renderEntry{value: value, lastAccess: c.now()}
}

// GetOrRender returns the cached string or renders and stores a new one.
func (c *RenderCache) GetOrRender(key string, render func() string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := render()
	c.Put(key, v)
	return v
}

// Sweep evicts idle entries and returns how many went.
func (c *RenderCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.lastAccess) >= c.idle {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (c *RenderCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len counts stored entries.
func (c *RenderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
