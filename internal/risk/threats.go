package risk

import (
	"fmt"
	"math"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// DetectThreats classifies the single dominant threat pattern in a snapshot.
// Rules run in severity order and the first match wins, so a market showing
// several symptoms at once is attributed to its worst explanation. Unlike
// ScoreRisk this leaves no trace in the engine's history; persisting
// assessments is the caller's job.
func (e *Engine) DetectThreats(snapshot models.MarketSnapshot, position *models.PositionContext) models.ThreatAssessment {
	price := clampFinite(snapshot.PriceChange24h)
	volume := clampFinite(snapshot.VolumeChange)
	liquidity := clampFinite(snapshot.LiquidityChange)
	topHolder := clampPercent(snapshot.TopHolderPercent)

	switch {
	case liquidity < -50 && price < -10:
		return models.ThreatAssessment{
			Symbol:          snapshot.Symbol,
			ThreatDetected:  true,
			ThreatType:      models.ThreatRugPull,
			Severity:        models.RiskLevelCritical,
			Confidence:      92,
			SuggestedAction: models.ActionEmergencyWithdraw,
			Reasoning: fmt.Sprintf("Liquidity dropped %.2f%% while price fell %.2f%% over 24h; pattern consistent with a rug pull in progress",
				math.Abs(liquidity), math.Abs(price)),
			EstimatedImpact: math.Abs(liquidity),
		}

	case volume > 1000:
		return models.ThreatAssessment{
			Symbol:          snapshot.Symbol,
			ThreatDetected:  true,
			ThreatType:      models.ThreatFlashLoanAttack,
			Severity:        models.RiskLevelCritical,
			Confidence:      78,
			SuggestedAction: models.ActionEmergencyWithdraw,
			Reasoning: fmt.Sprintf("Volume spiked %.2f%% above the 24h baseline; magnitude consistent with flash loan activity",
				volume),
			EstimatedImpact: 30,
		}

	case topHolder > 70:
		return models.ThreatAssessment{
			Symbol:          snapshot.Symbol,
			ThreatDetected:  true,
			ThreatType:      models.ThreatWhaleMovement,
			Severity:        models.RiskLevelHigh,
			Confidence:      85,
			SuggestedAction: models.ActionReduceExposure,
			Reasoning: fmt.Sprintf("Top holder controls %.2f%% of supply; a single sell could collapse the price",
				topHolder),
			EstimatedImpact: topHolder,
		}

	case price < -20:
		action := models.ActionAlert
		if position != nil && position.RiskProfile.AllowAutoWithdraw {
			action = models.ActionStopLoss
		}
		return models.ThreatAssessment{
			Symbol:          snapshot.Symbol,
			ThreatDetected:  true,
			ThreatType:      models.ThreatPriceCrash,
			Severity:        models.RiskLevelHigh,
			Confidence:      90,
			SuggestedAction: action,
			Reasoning: fmt.Sprintf("Price fell %.2f%% in 24h, breaching the crash threshold",
				math.Abs(price)),
			EstimatedImpact: math.Abs(price),
		}

	case liquidity < -25:
		return models.ThreatAssessment{
			Symbol:          snapshot.Symbol,
			ThreatDetected:  true,
			ThreatType:      models.ThreatLiquidityDrain,
			Severity:        models.RiskLevelMedium,
			Confidence:      80,
			SuggestedAction: models.ActionAlert,
			Reasoning: fmt.Sprintf("Liquidity declined %.2f%% in 24h; exit capacity is degrading",
				math.Abs(liquidity)),
			EstimatedImpact: math.Abs(liquidity) * 0.5,
		}

	case volume > 200:
		return models.ThreatAssessment{
			Symbol:          snapshot.Symbol,
			ThreatDetected:  true,
			ThreatType:      models.ThreatAbnormalVolume,
			Severity:        models.RiskLevelLow,
			Confidence:      70,
			SuggestedAction: models.ActionMonitor,
			Reasoning: fmt.Sprintf("Volume up %.2f%% against the 24h baseline; watching for follow-through",
				volume),
			EstimatedImpact: 5,
		}

	default:
		return models.ThreatAssessment{
			Symbol:          snapshot.Symbol,
			ThreatDetected:  false,
			ThreatType:      models.ThreatNone,
			Severity:        models.RiskLevelNone,
			Confidence:      95,
			SuggestedAction: models.ActionNone,
			Reasoning:       "No threat pattern detected across monitored indicators",
			EstimatedImpact: 0,
		}
	}
}
