package catalog

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[T any] struct {
	data      T
	timestamp time.Time
}

// Cache memoizes upstream responses for a fixed TTL. Capacity is bounded and
// the least recently used key is evicted first. Expiry is lazy: a stale entry
// reads as a miss and stays in place until the next Put overwrites it.
type Cache[T any] struct {
	ttl     time.Duration
	now     func() time.Time
	entries *lru.Cache[string, entry[T]]
}

// NewCache creates a cache holding at most size keys.
func NewCache[T any](size int, ttl time.Duration) (*Cache[T], error) {
	entries, err := lru.New[string, entry[T]](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache[T]{ttl: ttl, now: time.Now, entries: entries}, nil
}

// Get returns the cached value if it was stored less than TTL ago.
func (c *Cache[T]) Get(key string) (T, bool) {
	e, ok := c.entries.Get(key)
	if !ok || c.now().Sub(e.timestamp) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.data, true
}

// Put stores value under key, stamped with the current time.
func (c *Cache[T]) Put(key string, value T) {
	c.entries.Add(key, entry[T]{data: value, timestamp: c.now()})
}

// Len returns the number of stored keys, stale ones included.
func (c *Cache[T]) Len() int {
	return c.entries.Len()
}

// TTL returns the configured time-to-live.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}
