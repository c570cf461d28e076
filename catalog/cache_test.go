package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, size int, ttl time.Duration) (*Cache[string], *time.Time) {
	t.Helper()
	c, err := NewCache[string](size, ttl)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_HitWithinTTL(t *testing.T) {
	c, now := newTestCache(t, 10, 5*time.Minute)

	c.Put("k", "v")
	*now = now.Add(4*time.Minute + 59*time.Second)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCache_StaleEntryIsMiss(t *testing.T) {
	c, now := newTestCache(t, 10, 5*time.Minute)

	c.Put("k", "v")
	*now = now.Add(5 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	// Lazy expiry: the stale entry is not evicted on read.
	assert.Equal(t, 1, c.Len())

	c.Put("k", "fresh")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)

	c.Put("a", "1")
	c.Put("b", "2")
	_, _ = c.Get("a")
	c.Put("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestNewCache_InvalidSize(t *testing.T) {
	_, err := NewCache[string](0, time.Minute)
	assert.Error(t, err)
}
