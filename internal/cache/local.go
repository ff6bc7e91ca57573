package cache

import (
	"sync"
	"time"

	"chatcore/internal/core"
)

const (
	// DefaultMaxEntries bounds the number of live cache entries.
	DefaultMaxEntries = 256

	// DefaultTTL is the default time-to-live for cached responses.
	DefaultTTL = 5 * time.Minute
)

type entry struct {
	resp    *core.ChatResponse
	expires time.Time
}

// Local implements Cache with an in-memory map. When full, the entry
// closest to expiry is dropped to make room.
type Local struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewLocal creates a local cache. Non-positive maxEntries or ttl fall
// back to the defaults.
func NewLocal(maxEntries int, ttl time.Duration) *Local {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Local{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get retrieves a cached response, treating expired entries as absent.
func (c *Local) Get(key string) (*core.ChatResponse, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.resp, true
}

// Set stores a response, evicting the entry closest to expiry when full.
func (c *Local) Set(key string, resp *core.ChatResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{resp: resp, expires: c.now().Add(c.ttl)}
}

// Len reports the number of live (unexpired) entries.
func (c *Local) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	n := 0
	for _, e := range c.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}

func (c *Local) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.expires.Before(oldest) {
			oldestKey = key
			oldest = e.expires
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
