package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RiskLevel is the five-value ordinal severity classification derived from a
// numeric risk score. Higher values are more severe; the ordering is relied on
// by callers comparing levels.
type RiskLevel int

const (
	RiskLevelNone RiskLevel = iota
	RiskLevelLow
	RiskLevelMedium
	RiskLevelHigh
	RiskLevelCritical
)

var riskLevelNames = map[RiskLevel]string{
	RiskLevelNone:     "NONE",
	RiskLevelLow:      "LOW",
	RiskLevelMedium:   "MEDIUM",
	RiskLevelHigh:     "HIGH",
	RiskLevelCritical: "CRITICAL",
}

// String returns the canonical name of the risk level.
func (l RiskLevel) String() string {
	if name, ok := riskLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("RISK_LEVEL(%d)", int(l))
}

// Ordinal returns the stable integer code used at the serialization boundary.
func (l RiskLevel) Ordinal() int {
	return int(l)
}

// MarshalJSON serializes the level as its canonical name.
func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON parses a level from its canonical name.
func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseRiskLevel maps a canonical name back to a RiskLevel.
func ParseRiskLevel(name string) (RiskLevel, error) {
	for level, n := range riskLevelNames {
		if n == name {
			return level, nil
		}
	}
	return RiskLevelNone, fmt.Errorf("unknown risk level %q", name)
}

// RiskFactor is one independently scored risk dimension. Description embeds
// the raw metric that produced the score so the narrative stays auditable.
type RiskFactor struct {
	Name        string  `json:"name"`
	Score       int     `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// RiskSnapshot is the engine's composite scoring output for one invocation.
// Instances are never mutated once produced.
type RiskSnapshot struct {
	Symbol            string       `json:"symbol"`
	LiquidationRisk   int          `json:"liquidation_risk"`
	VolatilityRisk    int          `json:"volatility_risk"`
	ProtocolRisk      int          `json:"protocol_risk"`
	SmartContractRisk int          `json:"smart_contract_risk"`
	OverallRisk       int          `json:"overall_risk"`
	RiskLevel         RiskLevel    `json:"risk_level"`
	Confidence        int          `json:"confidence"`
	Reasoning         string       `json:"reasoning"`
	Factors           []RiskFactor `json:"factors"`
	Timestamp         time.Time    `json:"timestamp"`
}
