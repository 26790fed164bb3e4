package configcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cache := New(time.Minute, WithClock(clock))

	cache.Set("audit.stats_window", "24h")

	got, ok := cache.Get("audit.stats_window")
	assert.True(t, ok)
	assert.Equal(t, "24h", got)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("audit.stats_window")
	assert.False(t, ok, "entry older than TTL must not be served")
}

func TestCacheInvalidatePrefix(t *testing.T) {
	cache := New(time.Minute)
	cache.Set("audit.stats_window", "24h")
	cache.Set("audit.export_limit", "1000")
	cache.Set("flags.page_size", "50")

	cache.InvalidatePrefix("audit.")

	_, ok := cache.Get("audit.stats_window")
	assert.False(t, ok)
	_, ok = cache.Get("audit.export_limit")
	assert.False(t, ok)
	_, ok = cache.Get("flags.page_size")
	assert.True(t, ok, "unrelated prefixes stay cached")
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	cache := New(time.Minute)
	_, ok := cache.Get("nope")
	assert.False(t, ok)
}
