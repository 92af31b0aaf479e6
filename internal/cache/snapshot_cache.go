package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// SnapshotCacheEntry represents a cached market snapshot with metadata
type SnapshotCacheEntry struct {
	Snapshot  models.MarketSnapshot `json:"snapshot"`
	CachedAt  time.Time             `json:"cached_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// SnapshotCacheStats tracks cache performance metrics
type SnapshotCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisSnapshotCache caches per-symbol market snapshots in Redis. A short
// TTL keeps repeated reads within one polling interval from hitting the
// provider again.
type RedisSnapshotCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *SnapshotCacheStats
	prefix string
	logger *logrus.Logger
}

// NewRedisSnapshotCache creates a new Redis-based snapshot cache
func NewRedisSnapshotCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisSnapshotCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisSnapshotCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &SnapshotCacheStats{},
		prefix: "snapshot_cache:",
		logger: logger,
	}
}

// Get retrieves the cached snapshot for a symbol
func (c *RedisSnapshotCache) Get(ctx context.Context, symbol string) (models.MarketSnapshot, bool) {
	cacheKey := c.prefix + symbol

	data, err := c.redis.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		c.stats.mu.Lock()
		c.stats.Misses++
		c.stats.mu.Unlock()
		return models.MarketSnapshot{}, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Redis error getting snapshot")
		c.stats.mu.Lock()
		c.stats.Misses++
		c.stats.mu.Unlock()
		return models.MarketSnapshot{}, false
	}

	var entry SnapshotCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Error deserializing cached snapshot")
		c.stats.mu.Lock()
		c.stats.Misses++
		c.stats.mu.Unlock()
		return models.MarketSnapshot{}, false
	}

	// Redis TTL already bounds staleness; entries past their own expiry
	// are treated as misses so the monitor refetches.
	if time.Now().After(entry.ExpiresAt) {
		c.stats.mu.Lock()
		c.stats.Misses++
		c.stats.mu.Unlock()
		return models.MarketSnapshot{}, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()

	return entry.Snapshot, true
}

// Set stores a snapshot for a symbol
func (c *RedisSnapshotCache) Set(ctx context.Context, symbol string, snapshot models.MarketSnapshot) {
	cacheKey := c.prefix + symbol

	now := time.Now()
	entry := SnapshotCacheEntry{
		Snapshot:  snapshot,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Error serializing snapshot")
		return
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Redis error setting snapshot")
		return
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

// GetStats returns current cache statistics
func (c *RedisSnapshotCache) GetStats() SnapshotCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return SnapshotCacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

// LogStats logs current cache performance statistics
func (c *RedisSnapshotCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Snapshot cache stats")
}

// Clear removes all cached snapshots
func (c *RedisSnapshotCache) Clear(ctx context.Context) error {
	pattern := c.prefix + "*"

	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("entries", len(keys)).Info("Cleared snapshot cache")
	return nil
}

// CachedSymbols returns the symbols that currently have cached snapshots
func (c *RedisSnapshotCache) CachedSymbols(ctx context.Context) ([]string, error) {
	pattern := c.prefix + "*"

	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}

	var symbols []string
	prefixLen := len(c.prefix)
	for _, key := range keys {
		if len(key) > prefixLen {
			symbols = append(symbols, key[prefixLen:])
		}
	}

	return symbols, nil
}

// Warm pre-loads snapshots for the watched symbols
func (c *RedisSnapshotCache) Warm(ctx context.Context, symbols []string, fetcher func(context.Context, string) (models.MarketSnapshot, error)) error {
	c.logger.WithField("symbols", len(symbols)).Info("Warming snapshot cache")

	for _, symbol := range symbols {
		if _, exists := c.Get(ctx, symbol); exists {
			continue
		}

		snapshot, err := fetcher(ctx, symbol)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to warm cache")
			continue
		}

		c.Set(ctx, symbol, snapshot)
	}

	return nil
}
