package models

import (
	"encoding/json"
	"fmt"
)

// ThreatType identifies the single dominant threat pattern attributed to a
// market snapshot. Classification is first-match on an ordered rule chain, so
// at most one type other than ThreatNone is ever reported per observation.
type ThreatType int

const (
	ThreatNone ThreatType = iota
	ThreatPriceCrash
	ThreatLiquidityDrain
	ThreatRugPull
	ThreatFlashLoanAttack
	ThreatAbnormalVolume
	ThreatWhaleMovement
	ThreatContractExploit
	ThreatGovernanceAttack
)

var threatTypeNames = map[ThreatType]string{
	ThreatNone:             "NONE",
	ThreatPriceCrash:       "PRICE_CRASH",
	ThreatLiquidityDrain:   "LIQUIDITY_DRAIN",
	ThreatRugPull:          "RUG_PULL",
	ThreatFlashLoanAttack:  "FLASH_LOAN_ATTACK",
	ThreatAbnormalVolume:   "ABNORMAL_VOLUME",
	ThreatWhaleMovement:    "WHALE_MOVEMENT",
	ThreatContractExploit:  "CONTRACT_EXPLOIT",
	ThreatGovernanceAttack: "GOVERNANCE_ATTACK",
}

// String returns the canonical name of the threat type.
func (t ThreatType) String() string {
	if name, ok := threatTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("THREAT_TYPE(%d)", int(t))
}

// Ordinal returns the stable integer code used at the serialization boundary.
func (t ThreatType) Ordinal() int {
	return int(t)
}

// MarshalJSON serializes the threat type as its canonical name.
func (t ThreatType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a threat type from its canonical name.
func (t *ThreatType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for threat, n := range threatTypeNames {
		if n == name {
			*t = threat
			return nil
		}
	}
	return fmt.Errorf("unknown threat type %q", name)
}

// SuggestedAction is the remedial action the engine recommends to the
// decision executor. The engine only suggests; execution policy (and whether
// automatic actions are permitted at all) lives with the executor.
type SuggestedAction int

const (
	ActionNone SuggestedAction = iota
	ActionMonitor
	ActionAlert
	ActionReduceExposure
	ActionEmergencyWithdraw
	ActionStopLoss
	ActionTakeProfit
	ActionRebalance
)

var suggestedActionNames = map[SuggestedAction]string{
	ActionNone:              "NONE",
	ActionMonitor:           "MONITOR",
	ActionAlert:             "ALERT",
	ActionReduceExposure:    "REDUCE_EXPOSURE",
	ActionEmergencyWithdraw: "EMERGENCY_WITHDRAW",
	ActionStopLoss:          "STOP_LOSS",
	ActionTakeProfit:        "TAKE_PROFIT",
	ActionRebalance:         "REBALANCE",
}

// String returns the canonical name of the suggested action.
func (a SuggestedAction) String() string {
	if name, ok := suggestedActionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("SUGGESTED_ACTION(%d)", int(a))
}

// Ordinal returns the stable integer code used at the serialization boundary.
func (a SuggestedAction) Ordinal() int {
	return int(a)
}

// MarshalJSON serializes the action as its canonical name.
func (a SuggestedAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses an action from its canonical name.
func (a *SuggestedAction) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for action, n := range suggestedActionNames {
		if n == name {
			*a = action
			return nil
		}
	}
	return fmt.Errorf("unknown suggested action %q", name)
}

// ThreatAssessment is the engine's threat classification output for one
// invocation, independent of the composite risk score.
type ThreatAssessment struct {
	Symbol          string          `json:"symbol"`
	ThreatDetected  bool            `json:"threat_detected"`
	ThreatType      ThreatType      `json:"threat_type"`
	Severity        RiskLevel       `json:"severity"`
	Confidence      int             `json:"confidence"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
	Reasoning       string          `json:"reasoning"`
	EstimatedImpact float64         `json:"estimated_impact"`
}
