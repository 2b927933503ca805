package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemorySize bounds the in-memory cache when no size is given.
const DefaultMemorySize = 4096

// memoryEntry holds a cached value with its own expiry.
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// InMemoryCache is a bounded, thread-safe LRU cache with per-entry TTL.
type InMemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// MemoryConfig holds configuration for the in-memory cache.
type MemoryConfig struct {
	Size   int           // Maximum number of entries (default: DefaultMemorySize)
	MaxTTL time.Duration // Upper bound on any entry's lifetime (0 = none)
}

// NewInMemoryCache creates a new in-memory cache.
func NewInMemoryCache(cfg MemoryConfig) (*InMemoryCache, error) {
	size := cfg.Size
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &InMemoryCache{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, cfg.MaxTTL),
		now: time.Now,
	}, nil
}

// Get retrieves a value from the cache.
func (c *InMemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.lru.Remove(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores a value in the cache.
func (c *InMemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.lru.Add(key, memoryEntry{
		value:     value,
		expiresAt: c.now().Add(effectiveTTL(ttl)),
	})
	return nil
}

// Purge removes all entries whose key starts with prefix.
func (c *InMemoryCache) Purge(_ context.Context, prefix string) (int, error) {
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries in the cache (including expired ones).
func (c *InMemoryCache) Len() int {
	return c.lru.Len()
}

// Close is a no-op.
func (c *InMemoryCache) Close() error {
	return nil
}

var _ Backend = (*InMemoryCache)(nil)
