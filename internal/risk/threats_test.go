package risk

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

func TestDetectThreatsNoThreat(t *testing.T) {
	engine := newTestEngine()

	assessment := engine.DetectThreats(allClearSnapshot(), nil)

	assert.False(t, assessment.ThreatDetected)
	assert.Equal(t, models.ThreatNone, assessment.ThreatType)
	assert.Equal(t, models.RiskLevelNone, assessment.Severity)
	assert.Equal(t, 95, assessment.Confidence)
	assert.Equal(t, models.ActionNone, assessment.SuggestedAction)
	assert.Equal(t, 0.0, assessment.EstimatedImpact)
}

func TestDetectThreatsRugPull(t *testing.T) {
	engine := newTestEngine()

	assessment := engine.DetectThreats(rugPullSnapshot(), nil)

	assert.True(t, assessment.ThreatDetected)
	assert.Equal(t, models.ThreatRugPull, assessment.ThreatType)
	assert.Equal(t, models.RiskLevelCritical, assessment.Severity)
	assert.Equal(t, 92, assessment.Confidence)
	assert.Equal(t, models.ActionEmergencyWithdraw, assessment.SuggestedAction)
	assert.Equal(t, 85.0, assessment.EstimatedImpact)
	assert.Contains(t, assessment.Reasoning, "85.00%")
	assert.Contains(t, assessment.Reasoning, "68.00%")
}

func TestDetectThreatsFirstMatchWins(t *testing.T) {
	engine := newTestEngine()

	// Satisfies the rug pull, flash loan, whale and liquidity drain guards at
	// once; the most severe explanation must win.
	snapshot := models.MarketSnapshot{
		Symbol:           "MULTI/USDT",
		Price:            0.5,
		PriceChange24h:   -15,
		VolumeChange:     1500,
		LiquidityChange:  -60,
		TopHolderPercent: 80,
	}

	assessment := engine.DetectThreats(snapshot, nil)

	assert.Equal(t, models.ThreatRugPull, assessment.ThreatType)
	assert.Equal(t, models.ActionEmergencyWithdraw, assessment.SuggestedAction)
}

func TestDetectThreatsFlashLoan(t *testing.T) {
	engine := newTestEngine()

	snapshot := models.MarketSnapshot{
		Symbol:       "POOL/USDT",
		Price:        12,
		VolumeChange: 1200,
	}

	assessment := engine.DetectThreats(snapshot, nil)

	assert.Equal(t, models.ThreatFlashLoanAttack, assessment.ThreatType)
	assert.Equal(t, models.RiskLevelCritical, assessment.Severity)
	assert.Equal(t, 78, assessment.Confidence)
	assert.Equal(t, models.ActionEmergencyWithdraw, assessment.SuggestedAction)
	assert.Equal(t, 30.0, assessment.EstimatedImpact)
}

func TestDetectThreatsWhaleWarning(t *testing.T) {
	engine := newTestEngine()

	snapshot := models.MarketSnapshot{
		Symbol:           "TOKEN/USDT",
		Price:            3.4,
		PriceChange24h:   -1.5,
		LiquidityChange:  -2,
		TopHolderPercent: 72,
	}

	assessment := engine.DetectThreats(snapshot, nil)

	assert.Equal(t, models.ThreatWhaleMovement, assessment.ThreatType)
	assert.Equal(t, models.RiskLevelHigh, assessment.Severity)
	assert.Equal(t, 85, assessment.Confidence)
	assert.Equal(t, models.ActionReduceExposure, assessment.SuggestedAction)
	assert.Equal(t, 72.0, assessment.EstimatedImpact)
}

func TestDetectThreatsPriceCrashActionDependsOnPosition(t *testing.T) {
	engine := newTestEngine()
	snapshot := models.MarketSnapshot{
		Symbol:         "DROP/USDT",
		Price:          42,
		PriceChange24h: -28,
	}

	tests := []struct {
		name       string
		position   *models.PositionContext
		wantAction models.SuggestedAction
	}{
		{"no position defaults to alert", nil, models.ActionAlert},
		{
			"auto withdraw disabled",
			&models.PositionContext{
				DepositedAmount: decimal.NewFromInt(1000),
				RiskProfile:     models.RiskProfile{AllowAutoWithdraw: false},
			},
			models.ActionAlert,
		},
		{
			"auto withdraw enabled",
			&models.PositionContext{
				DepositedAmount: decimal.NewFromInt(1000),
				RiskProfile:     models.RiskProfile{AllowAutoWithdraw: true},
			},
			models.ActionStopLoss,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment := engine.DetectThreats(snapshot, tt.position)
			assert.Equal(t, models.ThreatPriceCrash, assessment.ThreatType)
			assert.Equal(t, models.RiskLevelHigh, assessment.Severity)
			assert.Equal(t, 90, assessment.Confidence)
			assert.Equal(t, tt.wantAction, assessment.SuggestedAction)
			assert.Equal(t, 28.0, assessment.EstimatedImpact)
		})
	}
}

func TestDetectThreatsLiquidityDrain(t *testing.T) {
	engine := newTestEngine()

	snapshot := models.MarketSnapshot{
		Symbol:          "LP/USDT",
		Price:           1.1,
		LiquidityChange: -30,
	}

	assessment := engine.DetectThreats(snapshot, nil)

	assert.Equal(t, models.ThreatLiquidityDrain, assessment.ThreatType)
	assert.Equal(t, models.RiskLevelMedium, assessment.Severity)
	assert.Equal(t, 80, assessment.Confidence)
	assert.Equal(t, models.ActionAlert, assessment.SuggestedAction)
	assert.Equal(t, 15.0, assessment.EstimatedImpact)
}

func TestDetectThreatsAbnormalVolume(t *testing.T) {
	engine := newTestEngine()

	snapshot := models.MarketSnapshot{
		Symbol:       "VOL/USDT",
		Price:        7,
		VolumeChange: 350,
	}

	assessment := engine.DetectThreats(snapshot, nil)

	assert.Equal(t, models.ThreatAbnormalVolume, assessment.ThreatType)
	assert.Equal(t, models.RiskLevelLow, assessment.Severity)
	assert.Equal(t, 70, assessment.Confidence)
	assert.Equal(t, models.ActionMonitor, assessment.SuggestedAction)
	assert.Equal(t, 5.0, assessment.EstimatedImpact)
}

func TestDetectThreatsExactlyOneRuleFires(t *testing.T) {
	engine := newTestEngine()

	snapshots := []models.MarketSnapshot{
		allClearSnapshot(),
		rugPullSnapshot(),
		{Price: 1, VolumeChange: 2000},
		{Price: 1, TopHolderPercent: 90},
		{Price: 1, PriceChange24h: -45},
		{Price: 1, LiquidityChange: -40},
		{Price: 1, VolumeChange: 500},
	}

	for _, s := range snapshots {
		assessment := engine.DetectThreats(s, nil)
		if assessment.ThreatDetected {
			assert.NotEqual(t, models.ThreatNone, assessment.ThreatType)
		} else {
			assert.Equal(t, models.ThreatNone, assessment.ThreatType)
		}
	}
}

func TestDetectThreatsMalformedInput(t *testing.T) {
	engine := newTestEngine()

	poisoned := models.MarketSnapshot{
		Symbol:           "NAN/USDT",
		Price:            math.NaN(),
		PriceChange24h:   math.NaN(),
		VolumeChange:     math.Inf(1),
		LiquidityChange:  math.NaN(),
		TopHolderPercent: math.NaN(),
	}

	// Infinite volume change clamps into the flash loan guard instead of
	// poisoning every comparison.
	assessment := engine.DetectThreats(poisoned, nil)
	assert.Equal(t, models.ThreatFlashLoanAttack, assessment.ThreatType)
	assert.False(t, math.IsNaN(assessment.EstimatedImpact))
}
