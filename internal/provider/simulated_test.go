package provider

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedProvider_Deterministic(t *testing.T) {
	p1 := NewSimulatedProviderAtBlock(12345)
	p2 := NewSimulatedProviderAtBlock(12345)
	ctx := context.Background()

	s1, err := p1.FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)
	s2, err := p2.FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
}

func TestSimulatedProvider_VariesByBlock(t *testing.T) {
	ctx := context.Background()

	a, err := NewSimulatedProviderAtBlock(100).FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)
	b, err := NewSimulatedProviderAtBlock(101).FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSimulatedProvider_VariesBySymbol(t *testing.T) {
	p := NewSimulatedProviderAtBlock(100)
	ctx := context.Background()

	a, err := p.FetchSnapshot(ctx, "BNB/USDT")
	require.NoError(t, err)
	b, err := p.FetchSnapshot(ctx, "CAKE/USDT")
	require.NoError(t, err)

	assert.Equal(t, "BNB/USDT", a.Symbol)
	assert.Equal(t, "CAKE/USDT", b.Symbol)
	assert.NotEqual(t, a.Price, b.Price)
}

func TestSimulatedProvider_SnapshotsValidate(t *testing.T) {
	p := NewSimulatedProviderAtBlock(0)
	ctx := context.Background()

	// A full regime cycle must produce only valid snapshots
	for block := uint64(0); block < 80; block++ {
		p.blockFn = func() uint64 { return block }
		snapshot, err := p.FetchSnapshot(ctx, "BNB/USDT")
		require.NoError(t, err)
		assert.NoError(t, snapshot.Validate(), "block %d", block)
		assert.False(t, math.IsNaN(snapshot.Price))
		assert.GreaterOrEqual(t, snapshot.TopHolderPercent, 0.0)
		assert.LessOrEqual(t, snapshot.TopHolderPercent, 100.0)
	}
}

func TestSimulatedProvider_RegimeCoverage(t *testing.T) {
	ctx := context.Background()

	var sawCrash, sawSpike, sawDrain, sawRug, sawWhale bool
	for block := uint64(0); block < 40; block++ {
		p := NewSimulatedProviderAtBlock(block)
		s, err := p.FetchSnapshot(ctx, "BNB/USDT")
		require.NoError(t, err)

		switch {
		case s.LiquidityChange < -50 && s.PriceChange24h < -10:
			sawRug = true
		case s.PriceChange24h < -20:
			sawCrash = true
		case s.VolumeChange > 1000:
			sawSpike = true
		case s.LiquidityChange < -25:
			sawDrain = true
		case s.TopHolderPercent > 70:
			sawWhale = true
		}
	}

	assert.True(t, sawCrash, "expected a price crash regime in the cycle")
	assert.True(t, sawSpike, "expected a volume spike regime in the cycle")
	assert.True(t, sawDrain, "expected a liquidity drain regime in the cycle")
	assert.True(t, sawRug, "expected a rug pull regime in the cycle")
	assert.True(t, sawWhale, "expected a whale regime in the cycle")
}

func TestSimulatedProvider_ContextCancelled(t *testing.T) {
	p := NewSimulatedProviderAtBlock(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.FetchSnapshot(ctx, "BNB/USDT")
	assert.Error(t, err)
}

func TestSimulatedProvider_Name(t *testing.T) {
	assert.Equal(t, "simulated", NewSimulatedProvider().Name())
}
