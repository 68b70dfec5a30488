package cache

import (
	"sync"
	"time"
)

// cacheEntry holds a cached value with its timestamp.
type cacheEntry struct {
	value     string
	timestamp time.Time
}

// InMemoryCache is a thread-safe bounded cache. When it grows past its
// maximum size the oldest inserted keys are pruned; overwriting a key keeps
// its original position.
type InMemoryCache struct {
	cache   map[string]cacheEntry
	order   []string // insertion order
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
}

// NewInMemoryCache creates a cache holding at most maxSize entries.
// If maxSize is 0 or negative the cache is unbounded; if ttlSeconds is 0 or
// negative, entries never expire.
func NewInMemoryCache(maxSize, ttlSeconds int) *InMemoryCache {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = 0
	}
	return &InMemoryCache{
		cache:   make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a value from the cache.
// Returns the value and true if found and not expired, empty string and false otherwise.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return "", false
	}

	if c.ttl > 0 && time.Since(entry.timestamp) > c.ttl {
		c.deleteLocked(key)
		return "", false
	}

	return entry.value, true
}

// Set stores a value and prunes the oldest entries beyond the maximum size.
func (c *InMemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; !exists {
		c.order = append(c.order, key)
	}
	c.cache[key] = cacheEntry{
		value:     value,
		timestamp: time.Now(),
	}
	c.pruneLocked()
	return nil
}

// Delete removes key.
func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

func (c *InMemoryCache) deleteLocked(key string) {
	if _, ok := c.cache[key]; !ok {
		return
	}
	delete(c.cache, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// pruneLocked returns the number of removed entries.
func (c *InMemoryCache) pruneLocked() int {
	if c.maxSize <= 0 || len(c.order) <= c.maxSize {
		return 0
	}
	excess := len(c.order) - c.maxSize
	for _, key := range c.order[:excess] {
		delete(c.cache, key)
	}
	c.order = append([]string(nil), c.order[excess:]...)
	return excess
}

// Prune shrinks the cache to maxSize, dropping the oldest inserted entries,
// and returns how many were removed. A non-positive maxSize uses the
// configured maximum.
func (c *InMemoryCache) Prune(maxSize int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxSize <= 0 {
		return c.pruneLocked()
	}
	saved := c.maxSize
	c.maxSize = maxSize
	n := c.pruneLocked()
	c.maxSize = saved
	return n
}

// Len returns the number of entries in the cache (including expired ones).
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Clear removes all entries from the cache.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
	c.order = nil
}

// Keys returns the keys in insertion order.
func (c *InMemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}
