package risk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// buildReasoning produces a deterministic narrative from the two factors
// contributing the most weighted risk. Ties keep the original evaluation
// order, so identical inputs always yield identical text.
func buildReasoning(factors []models.RiskFactor, overall int, level models.RiskLevel) string {
	ranked := make([]models.RiskFactor, len(factors))
	copy(ranked, factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return float64(ranked[i].Score)*ranked[i].Weight > float64(ranked[j].Score)*ranked[j].Weight
	})

	first := ranked[0]
	second := ranked[1]

	reasoning := fmt.Sprintf("Overall risk is %s (%d/100). Dominant factors: %s at %d/100 (%s) and %s at %d/100 (%s).",
		level, overall,
		first.Name, first.Score, first.Description,
		second.Name, second.Score, second.Description)

	switch {
	case level >= models.RiskLevelHigh:
		reasoning += " Immediate protective action advised."
	case level >= models.RiskLevelMedium:
		reasoning += " Increased monitoring frequency suggested."
	}

	return reasoning
}

// ReasoningHash returns the SHA-256 hex digest of the UTF-8 reasoning text.
// The executor attests to the narrative on-chain with this digest instead of
// transmitting the full string.
func ReasoningHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
