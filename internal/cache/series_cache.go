// Package cache provides the read-through series cache used between the
// timeframe coordinator and the market-data provider. A miss simply triggers
// a provider fetch; redundant fetches on concurrent misses are tolerated.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"equity-signal-engine/internal/marketdata"
)

// SeriesCache caches fetched bar series by (ticker, timeframe).
type SeriesCache interface {
	Get(ticker string, tf marketdata.Timeframe) []marketdata.Bar
	Set(ticker string, tf marketdata.Timeframe, bars []marketdata.Bar)
	Stats() (hits, misses int64)
}

func cacheKey(ticker string, tf marketdata.Timeframe) string {
	return fmt.Sprintf("series:%s:%s", ticker, tf)
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	data   map[string]*memoryEntry
	ttl    time.Duration
	mu     sync.RWMutex
	hits   atomic.Int64
	misses atomic.Int64
}

type memoryEntry struct {
	bars      []marketdata.Bar
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data: make(map[string]*memoryEntry),
		ttl:  ttl,
	}
}

func (c *MemoryCache) Get(ticker string, tf marketdata.Timeframe) []marketdata.Bar {
	c.mu.RLock()
	entry, exists := c.data[cacheKey(ticker, tf)]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		c.misses.Add(1)
		return nil
	}

	c.hits.Add(1)
	return entry.bars
}

func (c *MemoryCache) Set(ticker string, tf marketdata.Timeframe, bars []marketdata.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[cacheKey(ticker, tf)] = &memoryEntry{
		bars:      bars,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *MemoryCache) Stats() (int64, int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge removes expired entries.
func (c *MemoryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiresAt) {
			delete(c.data, key)
		}
	}
}
