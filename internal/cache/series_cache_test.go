package cache

import (
	"testing"
	"time"

	"equity-signal-engine/internal/marketdata"
)

func testBars() []marketdata.Bar {
	return []marketdata.Bar{
		{Time: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100, Volume: 1000},
		{Time: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Close: 101, Volume: 1100},
	}
}

// TestMemoryCacheHitAndMiss tests basic get/set with stats accounting
func TestMemoryCacheHitAndMiss(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	if bars := c.Get("AAPL", marketdata.TF1d); bars != nil {
		t.Error("Empty cache should miss")
	}

	c.Set("AAPL", marketdata.TF1d, testBars())

	bars := c.Get("AAPL", marketdata.TF1d)
	if len(bars) != 2 {
		t.Errorf("Expected 2 cached bars, got %d", len(bars))
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}
}

// TestMemoryCacheKeysByTimeframe tests that timeframes do not collide
func TestMemoryCacheKeysByTimeframe(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	c.Set("AAPL", marketdata.TF1d, testBars())

	if bars := c.Get("AAPL", marketdata.TF1h); bars != nil {
		t.Error("A different timeframe should miss")
	}
	if bars := c.Get("MSFT", marketdata.TF1d); bars != nil {
		t.Error("A different ticker should miss")
	}
}

// TestMemoryCacheExpiry tests the TTL
func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	c.Set("AAPL", marketdata.TF1d, testBars())

	time.Sleep(20 * time.Millisecond)

	if bars := c.Get("AAPL", marketdata.TF1d); bars != nil {
		t.Error("Expired entry should miss")
	}
}

// TestMemoryCachePurge tests expired-entry cleanup
func TestMemoryCachePurge(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	c.Set("AAPL", marketdata.TF1d, testBars())
	c.Set("MSFT", marketdata.TF1d, testBars())

	time.Sleep(20 * time.Millisecond)
	c.Purge()

	c.mu.RLock()
	remaining := len(c.data)
	c.mu.RUnlock()

	if remaining != 0 {
		t.Errorf("Purge should remove expired entries, %d remain", remaining)
	}
}
