package client

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"
)

// ConversionCache memoizes dialect conversion results with LRU eviction.
// Conversions are pure functions of (engine, source, target, query), and
// the gen-ai engine is slow and metered, so repeated conversions of the
// same statement are worth a cache lookup.
type ConversionCache struct {
	entries     sync.Map // map[string]string, key -> converted query
	accessOrder []string
	maxSize     int
	stats       cacheCounters
	mu          sync.Mutex
}

// cacheCounters are the live counters behind CacheStats.
type cacheCounters struct {
	Hits        atomic.Int64
	Misses      atomic.Int64
	Evictions   atomic.Int64
	CurrentSize atomic.Int64
}

// CacheStats is a point-in-time snapshot of the cache counters.
type CacheStats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	CurrentSize int64
}

// NewConversionCache creates a cache holding at most maxSize conversions.
func NewConversionCache(maxSize int) *ConversionCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &ConversionCache{
		accessOrder: make([]string, 0, maxSize),
		maxSize:     maxSize,
	}
}

// conversionKey builds the cache key. The query is folded through the
// same whitespace normalization as QueryFingerprint, so reformatting a
// statement still hits.
func conversionKey(engine Engine, sourceDialect, targetDialect, query string) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", engine, sourceDialect, targetDialect, normalizeQuery(query))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Get retrieves a cached conversion.
func (c *ConversionCache) Get(key string) (string, bool) {
	value, ok := c.entries.Load(key)
	if !ok {
		c.stats.Misses.Add(1)
		return "", false
	}

	c.stats.Hits.Add(1)
	c.updateAccessOrder(key)
	return value.(string), true
}

// Put stores a conversion, evicting the least recently used entry when
// the cache is full.
func (c *ConversionCache) Put(key, converted string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries.Load(key); exists {
		c.entries.Store(key, converted)
		return
	}

	if len(c.accessOrder) >= c.maxSize {
		c.evictLRU()
	}

	c.entries.Store(key, converted)
	c.accessOrder = append(c.accessOrder, key)
	c.stats.CurrentSize.Store(int64(len(c.accessOrder)))
}

// Clear removes all cached conversions.
func (c *ConversionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Range(func(key, value interface{}) bool {
		c.entries.Delete(key)
		return true
	})
	c.accessOrder = make([]string, 0, c.maxSize)
	c.stats.CurrentSize.Store(0)
}

// Stats returns a point-in-time copy of the cache counters.
func (c *ConversionCache) Stats() CacheStats {
	return CacheStats{
		Hits:        c.stats.Hits.Load(),
		Misses:      c.stats.Misses.Load(),
		Evictions:   c.stats.Evictions.Load(),
		CurrentSize: c.stats.CurrentSize.Load(),
	}
}

// evictLRU drops the least recently used entry. Caller holds c.mu.
func (c *ConversionCache) evictLRU() {
	if len(c.accessOrder) == 0 {
		return
	}

	lruKey := c.accessOrder[0]
	c.entries.Delete(lruKey)
	c.accessOrder = c.accessOrder[1:]
	c.stats.Evictions.Add(1)
}

// updateAccessOrder moves a key to the end (most recently used).
func (c *ConversionCache) updateAccessOrder(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, k := range c.accessOrder {
		if k == key {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			break
		}
	}
	c.accessOrder = append(c.accessOrder, key)
}
