package search

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
)

// InMemoryCache is a size-bounded TTL cache for formatted search output.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	maxSize int
	now     func() time.Time
}

type cacheEntry struct {
	value     string
	storedAt  time.Time
	expiresAt time.Time
}

// NewInMemoryCache creates a cache holding at most maxSize entries.
func NewInMemoryCache(maxSize int) *InMemoryCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &InMemoryCache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves a value from cache.
func (c *InMemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if c.now().After(entry.expiresAt) {
		return "", ErrCacheExpired
	}
	return entry.value, nil
}

// Set stores a value, evicting the oldest entry when full.
func (c *InMemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.purgeExpired(now)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{value: value, storedAt: now, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes an entry from cache.
func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Size returns the current number of entries, expired ones included.
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// must be called with lock held
func (c *InMemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *InMemoryCache) purgeExpired(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
