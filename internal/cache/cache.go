// Package cache is the in-process TTL cache for aggregated responses.
// Entries are volatile and best-effort; nothing survives a restart.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	storedAt time.Time
	ttl      time.Duration
	payload  []byte
}

// Cache stores marshaled response payloads keyed by query signature.
// Expiry is lazy: a stale entry is dropped by the Get that observes
// it, there is no background sweeper. The clock is injectable so
// tests control expiry without sleeping.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the cached payload for key, or misses if the entry is
// absent or older than its TTL. The returned bytes are the exact
// bytes passed to Set.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > e.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

// Set stores payload under key for ttl. A later Set for the same key
// overwrites; last write wins.
func (c *Cache) Set(key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		storedAt: c.now(),
		ttl:      ttl,
		payload:  payload,
	}
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
