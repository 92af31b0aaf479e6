package provider

import (
	"context"

	"github.com/wardenlabs/defi-sentinel/internal/cache"
	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// CachedProvider wraps a MarketDataProvider with the Redis snapshot
// cache. Reads within the cache TTL are served without touching the
// underlying provider.
type CachedProvider struct {
	inner MarketDataProvider
	cache *cache.RedisSnapshotCache
}

// NewCachedProvider creates a caching decorator around a provider.
func NewCachedProvider(inner MarketDataProvider, snapshotCache *cache.RedisSnapshotCache) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: snapshotCache,
	}
}

// Name identifies the provider in logs and traces.
func (p *CachedProvider) Name() string {
	return p.inner.Name() + "+cache"
}

// FetchSnapshot serves from the snapshot cache when possible, falling
// back to the underlying provider and populating the cache on a miss.
func (p *CachedProvider) FetchSnapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	if snapshot, ok := p.cache.Get(ctx, symbol); ok {
		return snapshot, nil
	}

	snapshot, err := p.inner.FetchSnapshot(ctx, symbol)
	if err != nil {
		return models.MarketSnapshot{}, err
	}

	p.cache.Set(ctx, symbol, snapshot)
	return snapshot, nil
}
