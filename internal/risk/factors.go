package risk

import (
	"fmt"
	"math"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// Factor weights. The ordered table in defaultFactors keeps evaluation order
// and weights together so the combination formula never has to change when a
// factor is added.
const (
	weightVolatility = 0.30
	weightLiquidity  = 0.25
	weightVolume     = 0.15
	weightHolder     = 0.15
	weightMomentum   = 0.15
)

type factorSpec struct {
	name   string
	weight float64
	score  func(models.MarketSnapshot) (int, string)
}

func defaultFactors() []factorSpec {
	return []factorSpec{
		{name: "Price Volatility", weight: weightVolatility, score: scoreVolatility},
		{name: "Liquidity Health", weight: weightLiquidity, score: scoreLiquidity},
		{name: "Volume Analysis", weight: weightVolume, score: scoreVolume},
		{name: "Holder Concentration", weight: weightHolder, score: scoreHolderConcentration},
		{name: "Momentum", weight: weightMomentum, score: scoreMomentum},
	}
}

// clampFinite maps non-finite inputs into the scorable domain so every step
// comparison stays well-defined. NaN reads as "no movement".
func clampFinite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(v, -1) {
		return -math.MaxFloat64
	}
	return v
}

func clampPercent(v float64) float64 {
	v = clampFinite(v)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// scoreVolatility maps the absolute 24h price change onto fixed breakpoints.
// Downward moves are riskier than upward ones of the same magnitude, hence
// the 1.3 multiplier on negative changes.
func scoreVolatility(s models.MarketSnapshot) (int, string) {
	change := clampFinite(s.PriceChange24h)
	magnitude := math.Abs(change)

	var score float64
	switch {
	case magnitude < 2:
		score = 5
	case magnitude < 5:
		score = 20
	case magnitude < 10:
		score = 40
	case magnitude < 20:
		score = 65
	case magnitude < 30:
		score = 80
	default:
		score = 95
	}

	if change < 0 {
		score = math.Min(100, score*1.3)
	}

	return int(math.Round(score)), fmt.Sprintf("24h price change of %.2f%%", change)
}

// scoreLiquidity maps the signed liquidity change onto fixed breakpoints.
// Growing liquidity is healthy; anything past -50% reads as near-certain exit.
func scoreLiquidity(s models.MarketSnapshot) (int, string) {
	change := clampFinite(s.LiquidityChange)

	var score int
	switch {
	case change > 5:
		score = 5
	case change > 0:
		score = 10
	case change > -5:
		score = 20
	case change > -15:
		score = 40
	case change > -30:
		score = 65
	case change > -50:
		score = 85
	default:
		score = 98
	}

	return score, fmt.Sprintf("liquidity change of %.2f%%", change)
}

// scoreVolume maps the signed volume change onto fixed breakpoints. Volume
// spikes past 1000% are the flash-loan signature territory.
func scoreVolume(s models.MarketSnapshot) (int, string) {
	change := clampFinite(s.VolumeChange)

	var score int
	switch {
	case change < 50:
		score = 10
	case change < 100:
		score = 20
	case change < 200:
		score = 35
	case change < 500:
		score = 55
	case change < 1000:
		score = 75
	default:
		score = 95
	}

	return score, fmt.Sprintf("volume change of %.2f%%", change)
}

// scoreHolderConcentration maps the top holder's supply share onto fixed
// breakpoints.
func scoreHolderConcentration(s models.MarketSnapshot) (int, string) {
	share := clampPercent(s.TopHolderPercent)

	var score int
	switch {
	case share < 10:
		score = 5
	case share < 20:
		score = 15
	case share < 30:
		score = 30
	case share < 50:
		score = 55
	case share < 70:
		score = 80
	default:
		score = 95
	}

	return score, fmt.Sprintf("top holder controls %.2f%% of supply", share)
}

// scoreMomentum is an additive compound score: coincident price, volume and
// liquidity deterioration scores much worse than any single signal.
func scoreMomentum(s models.MarketSnapshot) (int, string) {
	price := clampFinite(s.PriceChange24h)
	volume := clampFinite(s.VolumeChange)
	liquidity := clampFinite(s.LiquidityChange)

	score := 10.0
	priceDown := price < -5
	liquidityDown := liquidity < -10

	if priceDown {
		score += 25
		if volume > 100 {
			score += 20
		}
	}
	if liquidityDown {
		score += 25
		if priceDown {
			score += 15
		}
	}
	if score > 100 {
		score = 100
	}

	desc := fmt.Sprintf("compound momentum across price %.2f%%, volume %.2f%%, liquidity %.2f%%",
		price, volume, liquidity)
	return int(math.Round(score)), desc
}
