package provider

import (
	"context"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// MarketDataProvider supplies market snapshots for watched asset pairs.
// Implementations must be safe for concurrent use; the monitor loop and
// the HTTP handlers both fetch through the same provider.
type MarketDataProvider interface {
	// FetchSnapshot returns the current market snapshot for a symbol.
	FetchSnapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error)
	// Name identifies the provider in logs and traces.
	Name() string
}
