package library

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a bounded in-memory cache of loaded avatars. When full, the
// least recently used entry is evicted.
type Cache struct {
	entries *lru.Cache[string, *Entry] // nil when caching is disabled

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache holding at most capacity entries. A capacity of
// zero or less disables caching.
func NewCache(capacity int) *Cache {
	c := &Cache{}
	if capacity > 0 {
		// New only fails for a non-positive size.
		c.entries, _ = lru.New[string, *Entry](capacity)
	}
	return c
}

// Get retrieves an entry and marks it as recently used.
func (c *Cache) Get(key string) (*Entry, bool) {
	var (
		e  *Entry
		ok bool
	)
	if c.entries != nil {
		e, ok = c.entries.Get(key)
	}
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return e, ok
}

// Set stores an entry, evicting the least recently used one when full.
func (c *Cache) Set(key string, e *Entry) {
	if c.entries == nil {
		return
	}
	c.entries.Add(key, e)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Clear clears the cache.
func (c *Cache) Clear() {
	if c.entries != nil {
		c.entries.Purge()
	}
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	return int(c.hits.Load()), int(c.misses.Load())
}
