package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"equity-signal-engine/config"
	"equity-signal-engine/internal/marketdata"
)

// RedisCache backs the series cache with Redis so repeated batches across
// processes share fetched data. Operations degrade gracefully: when Redis is
// unreachable the cache reports misses and the coordinator falls back to
// provider fetches.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache creates a Redis-backed series cache and verifies connectivity.
func NewRedisCache(cfg config.RedisConfig, ttl time.Duration, logger zerolog.Logger) (*RedisCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	rc := &RedisCache{
		client:        client,
		ttl:           ttl,
		logger:        logger.With().Str("component", "RedisCache").Logger(),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	rc.healthy = true

	return rc, nil
}

func (c *RedisCache) Get(ticker string, tf marketdata.Timeframe) []marketdata.Bar {
	if !c.isHealthy() {
		c.misses.Add(1)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, cacheKey(ticker, tf)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.recordFailure(err)
		}
		c.misses.Add(1)
		return nil
	}
	c.recordSuccess()

	var bars []marketdata.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("discarding corrupt cache entry")
		c.misses.Add(1)
		return nil
	}

	c.hits.Add(1)
	return bars
}

func (c *RedisCache) Set(ticker string, tf marketdata.Timeframe, bars []marketdata.Bar) {
	if !c.isHealthy() {
		return
	}

	raw, err := json.Marshal(bars)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, cacheKey(ticker, tf), raw, c.ttl).Err(); err != nil {
		c.recordFailure(err)
		return
	}
	c.recordSuccess()
}

func (c *RedisCache) Stats() (int64, int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) isHealthy() bool {
	c.mu.RLock()
	healthy, lastCheck := c.healthy, c.lastCheck
	c.mu.RUnlock()

	if healthy {
		return true
	}

	// Periodically probe for recovery.
	if time.Since(lastCheck) < c.checkInterval {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCheck = time.Now()
	if err := c.client.Ping(ctx).Err(); err == nil {
		c.healthy = true
		c.failureCount = 0
		c.logger.Info().Msg("redis connection recovered")
		return true
	}
	return false
}

func (c *RedisCache) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	if c.healthy && c.failureCount >= c.maxFailures {
		c.healthy = false
		c.lastCheck = time.Now()
		c.logger.Warn().Err(err).Int("failures", c.failureCount).Msg("redis marked unhealthy, degrading to provider fetches")
	}
}

func (c *RedisCache) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount = 0
}
