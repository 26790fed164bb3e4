// Package configcache provides the in-process cache for system configuration
// values. It is an explicit struct injected into the components that read
// tunables, never a module-level singleton, and supports key-prefix
// invalidation on write.
package configcache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     string
	timestamp time.Time
}

// Cache stores (value, timestamp) per key and serves reads only while the
// entry is younger than the TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	clock   func() time.Time
}

// Option configures a Cache instance.
type Option func(*Cache)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates a Cache with the given TTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached value for key if present and fresh.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.clock().Sub(e.timestamp) > c.ttl {
		return "", false
	}
	return e.value, true
}

// Set stores value for key, stamping it with the current time.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, timestamp: c.clock()}
}

// InvalidatePrefix drops every entry whose key starts with prefix. Writers
// call this so related tunables never serve a mix of old and new values.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}
