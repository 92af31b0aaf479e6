package models

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wardenlabs/defi-sentinel/internal/utils"
)

// MarketSnapshot represents a single observation of market indicators for a
// watched asset. It is immutable per scoring call; the engine never mutates it.
type MarketSnapshot struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	PriceChange24h   float64 `json:"price_change_24h"`
	Volume24h        float64 `json:"volume_24h"`
	VolumeChange     float64 `json:"volume_change"`
	Liquidity        float64 `json:"liquidity"`
	LiquidityChange  float64 `json:"liquidity_change"`
	Holders          int64   `json:"holders"`
	TopHolderPercent float64 `json:"top_holder_percent"`
}

// Validate checks that all numeric fields are finite and within domain.
// Callers feeding provider data into the engine should reject snapshots that
// fail validation; the engine itself clamps rather than rejects.
func (s *MarketSnapshot) Validate() error {
	fields := map[string]float64{
		"price":              s.Price,
		"price_change_24h":   s.PriceChange24h,
		"volume_24h":         s.Volume24h,
		"volume_change":      s.VolumeChange,
		"liquidity":          s.Liquidity,
		"liquidity_change":   s.LiquidityChange,
		"top_holder_percent": s.TopHolderPercent,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return utils.NewValidationErrorf("market snapshot field %s is not finite", name)
		}
	}
	if s.Price <= 0 {
		return utils.NewValidationErrorf("market snapshot price must be positive, got %f", s.Price)
	}
	if s.Volume24h < 0 {
		return utils.NewValidationErrorf("market snapshot volume_24h must be non-negative, got %f", s.Volume24h)
	}
	if s.Liquidity < 0 {
		return utils.NewValidationErrorf("market snapshot liquidity must be non-negative, got %f", s.Liquidity)
	}
	if s.Holders < 0 {
		return utils.NewValidationErrorf("market snapshot holders must be non-negative, got %d", s.Holders)
	}
	if s.TopHolderPercent < 0 || s.TopHolderPercent > 100 {
		return utils.NewValidationErrorf("market snapshot top_holder_percent must be in [0,100], got %f", s.TopHolderPercent)
	}
	return nil
}

// RiskProfile holds the per-position limits the executor operates under.
type RiskProfile struct {
	MaxSlippagePercent  float64         `json:"max_slippage_percent"`
	StopLossPercent     float64         `json:"stop_loss_percent"`
	MaxSingleActionValue decimal.Decimal `json:"max_single_action_value"`
	AllowAutoWithdraw   bool            `json:"allow_auto_withdraw"`
	AllowAutoSwap       bool            `json:"allow_auto_swap"`
}

// PositionContext carries optional position data for threat classification.
// When absent, scoring proceeds unaffected and price-crash handling falls back
// to an alert instead of an automatic stop loss.
type PositionContext struct {
	DepositedAmount decimal.Decimal `json:"deposited_amount"`
	RiskProfile     RiskProfile     `json:"risk_profile"`
}
