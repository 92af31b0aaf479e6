package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// Config holds tunables for a scoring engine instance.
type Config struct {
	// MaxHistory caps the retained snapshot history. Zero keeps every
	// snapshot for the process lifetime.
	MaxHistory int
}

// Engine converts market snapshots into composite risk scores and threat
// classifications. Each engine owns its own append-only snapshot history, so
// independent engines (one per watched asset, or per monitoring session) can
// coexist in one process. Safe for concurrent use.
type Engine struct {
	factors    []factorSpec
	logger     *logrus.Logger
	maxHistory int

	mu      sync.Mutex
	history []models.RiskSnapshot
}

// NewEngine creates a scoring engine with the built-in factor table.
// It panics if the factor weights do not sum to 1.0, which would silently
// skew the composite score.
func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	factors := defaultFactors()

	total := 0.0
	for _, f := range factors {
		total += f.weight
	}
	if math.Abs(total-1.0) > 1e-9 {
		panic(fmt.Sprintf("risk: factor weights sum to %v, want 1.0", total))
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &Engine{
		factors:    factors,
		logger:     logger,
		maxHistory: cfg.MaxHistory,
	}
}

// ScoreRisk evaluates all factors against the snapshot and produces a
// composite risk snapshot, which is also appended to the engine's history.
// The position context does not influence scoring; it is accepted for parity
// with DetectThreats. The operation is total: non-finite inputs are clamped,
// never rejected.
func (e *Engine) ScoreRisk(snapshot models.MarketSnapshot, position *models.PositionContext) models.RiskSnapshot {
	factors := make([]models.RiskFactor, 0, len(e.factors))
	weightedSum := 0.0
	weightTotal := 0.0

	for _, spec := range e.factors {
		score, desc := spec.score(snapshot)
		factors = append(factors, models.RiskFactor{
			Name:        spec.name,
			Score:       score,
			Weight:      spec.weight,
			Description: desc,
		})
		weightedSum += float64(score) * spec.weight
		weightTotal += spec.weight
	}

	overall := int(math.Round(weightedSum / weightTotal))
	level := LevelForScore(overall)

	volatility := factors[0].Score
	liquidity := factors[1].Score
	holder := factors[3].Score

	result := models.RiskSnapshot{
		Symbol:          snapshot.Symbol,
		VolatilityRisk:  volatility,
		LiquidationRisk: int(math.Round(0.6*float64(volatility) + 0.4*float64(liquidity))),
		ProtocolRisk:    int(math.Round(float64(liquidity+holder) / 2)),
		// Known limitation: no contract-analysis signal exists in this
		// engine, so holder concentration stands in as a capped proxy.
		SmartContractRisk: minInt(30, holder),
		OverallRisk:       overall,
		RiskLevel:         level,
		Confidence:        confidenceFromScores(factors),
		Reasoning:         buildReasoning(factors, overall, level),
		Factors:           factors,
		Timestamp:         time.Now().UTC(),
	}

	e.mu.Lock()
	e.history = append(e.history, result)
	if e.maxHistory > 0 && len(e.history) > e.maxHistory {
		e.history = e.history[len(e.history)-e.maxHistory:]
	}
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"symbol":     snapshot.Symbol,
		"overall":    overall,
		"risk_level": level.String(),
		"confidence": result.Confidence,
	}).Debug("Scored market snapshot")

	return result
}

// History returns a copy of the retained snapshot history in call order.
// Mutating the returned slice does not affect the engine.
func (e *Engine) History() []models.RiskSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.RiskSnapshot, len(e.history))
	copy(out, e.history)
	return out
}

// LevelForScore maps a composite score onto the fixed risk level thresholds.
func LevelForScore(score int) models.RiskLevel {
	switch {
	case score < 15:
		return models.RiskLevelNone
	case score < 35:
		return models.RiskLevelLow
	case score < 55:
		return models.RiskLevelMedium
	case score < 75:
		return models.RiskLevelHigh
	default:
		return models.RiskLevelCritical
	}
}

// confidenceFromScores derives certainty from inter-factor agreement: low
// dispersion across factor scores raises confidence, full divergence floors
// it near 60.
func confidenceFromScores(factors []models.RiskFactor) int {
	mean := 0.0
	for _, f := range factors {
		mean += float64(f.Score)
	}
	mean /= float64(len(factors))

	variance := 0.0
	for _, f := range factors {
		d := float64(f.Score) - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(factors)))

	agreementBonus := math.Max(0, 30-stdDev)
	return int(math.Min(99, math.Round(60+agreementBonus)))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
