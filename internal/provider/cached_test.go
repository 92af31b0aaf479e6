package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/defi-sentinel/internal/cache"
	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// countingProvider wraps another provider and counts fetches
type countingProvider struct {
	inner   MarketDataProvider
	fetches int
	err     error
}

func (c *countingProvider) FetchSnapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	c.fetches++
	if c.err != nil {
		return models.MarketSnapshot{}, c.err
	}
	return c.inner.FetchSnapshot(ctx, symbol)
}

func (c *countingProvider) Name() string { return "counting" }

func newTestCache(t *testing.T) (*cache.RedisSnapshotCache, func()) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cleanup := func() {
		client.Close()
		s.Close()
	}

	return cache.NewRedisSnapshotCache(client, 15*time.Second, logger), cleanup
}

func TestCachedProvider_MissThenHit(t *testing.T) {
	snapshotCache, cleanup := newTestCache(t)
	defer cleanup()

	counting := &countingProvider{inner: NewSimulatedProviderAtBlock(42)}
	cached := NewCachedProvider(counting, snapshotCache)
	ctx := context.Background()

	first, err := cached.FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.fetches)

	second, err := cached.FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.fetches, "second read must be served from cache")
	assert.Equal(t, first, second)
}

func TestCachedProvider_DistinctSymbols(t *testing.T) {
	snapshotCache, cleanup := newTestCache(t)
	defer cleanup()

	counting := &countingProvider{inner: NewSimulatedProviderAtBlock(42)}
	cached := NewCachedProvider(counting, snapshotCache)
	ctx := context.Background()

	_, err := cached.FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)
	_, err = cached.FetchSnapshot(ctx, "CAKE/USDT")
	require.NoError(t, err)

	assert.Equal(t, 2, counting.fetches)
}

func TestCachedProvider_ErrorNotCached(t *testing.T) {
	snapshotCache, cleanup := newTestCache(t)
	defer cleanup()

	counting := &countingProvider{
		inner: NewSimulatedProviderAtBlock(42),
		err:   errors.New("provider unavailable"),
	}
	cached := NewCachedProvider(counting, snapshotCache)
	ctx := context.Background()

	_, err := cached.FetchSnapshot(ctx, "BNB/USDT")
	assert.Error(t, err)

	// Provider recovers; next fetch must go through
	counting.err = nil
	_, err = cached.FetchSnapshot(ctx, "BNB/USDT")
	assert.NoError(t, err)
	assert.Equal(t, 2, counting.fetches)
}

func TestCachedProvider_Name(t *testing.T) {
	snapshotCache, cleanup := newTestCache(t)
	defer cleanup()

	cached := NewCachedProvider(NewSimulatedProvider(), snapshotCache)
	assert.Equal(t, "simulated+cache", cached.Name())
}
