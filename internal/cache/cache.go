package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is an in-process cache of specialist results. A disabled Cache
// misses on every Get and ignores Put, so callers never need a nil check.
type Cache struct {
	c       *ristretto.Cache[string, []byte]
	ttl     time.Duration
	enabled bool
}

// Stats returns cache statistics.
type Stats struct {
	Enabled bool   `json:"enabled"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Added   uint64 `json:"added"`
	Evicted uint64 `json:"evicted"`
}

// New creates a Cache holding at most maxCostBytes of values, each kept for
// ttl (zero means until evicted).
func New(enabled bool, maxCostBytes int64, ttl time.Duration) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if maxCostBytes <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxCostBytes)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCostBytes/100*10, 1000), // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Cache{c: c, ttl: ttl, enabled: true}, nil
}

// Get retrieves a cached value by key.
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.c.Get(key)
}

// Put stores a value. Admission is asynchronous; Wait blocks until pending
// writes are visible.
func (c *Cache) Put(key string, value []byte) {
	if !c.enabled {
		return
	}
	c.c.SetWithTTL(key, value, int64(len(value)), c.ttl)
}

// Wait blocks until all buffered writes have been applied.
func (c *Cache) Wait() {
	if c.enabled {
		c.c.Wait()
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	if c.enabled {
		c.c.Clear()
	}
}

// GetStats returns hit/miss counters.
func (c *Cache) GetStats() Stats {
	if !c.enabled || c.c.Metrics == nil {
		return Stats{Enabled: c.enabled}
	}
	m := c.c.Metrics
	return Stats{
		Enabled: true,
		Hits:    m.Hits(),
		Misses:  m.Misses(),
		Added:   m.KeysAdded(),
		Evicted: m.KeysEvicted(),
	}
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	if c.enabled {
		c.c.Close()
	}
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// BuildKey creates a cache key from the inputs that determine a specialist
// result.
func BuildKey(parts ...string) string {
	return HashKey(strings.Join(parts, "\x00"))
}
