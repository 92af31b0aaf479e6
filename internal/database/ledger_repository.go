package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/wardenlabs/defi-sentinel/internal/models"
	"github.com/wardenlabs/defi-sentinel/internal/risk"
)

// RiskLedgerEntry is a persisted risk assessment row.
type RiskLedgerEntry struct {
	// ID is the unique identifier.
	ID uuid.UUID `json:"id" db:"id"`
	// Symbol is the asset pair the assessment covers.
	Symbol string `json:"symbol" db:"symbol"`
	// OverallRisk is the composite score on the 0-100 scale.
	OverallRisk int `json:"overall_risk" db:"overall_risk"`
	// RiskLevel is the ordinal code of the risk level.
	RiskLevel models.RiskLevel `json:"risk_level" db:"risk_level"`
	// Confidence is the assessment confidence on the 0-99 scale.
	Confidence int `json:"confidence" db:"confidence"`
	// LiquidationRisk is the liquidation sub-score.
	LiquidationRisk int `json:"liquidation_risk" db:"liquidation_risk"`
	// VolatilityRisk is the volatility sub-score.
	VolatilityRisk int `json:"volatility_risk" db:"volatility_risk"`
	// ProtocolRisk is the protocol sub-score.
	ProtocolRisk int `json:"protocol_risk" db:"protocol_risk"`
	// SmartContractRisk is the smart contract sub-score.
	SmartContractRisk int `json:"smart_contract_risk" db:"smart_contract_risk"`
	// Factors holds the per-factor breakdown as JSON.
	Factors []models.RiskFactor `json:"factors" db:"factors"`
	// Reasoning is the human-readable assessment summary.
	Reasoning string `json:"reasoning" db:"reasoning"`
	// ReasoningHash is the SHA-256 hex digest of Reasoning, used for audit integrity.
	ReasoningHash string `json:"reasoning_hash" db:"reasoning_hash"`
	// CreatedAt is when the row was written.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ThreatEventEntry is a persisted threat classification row.
type ThreatEventEntry struct {
	// ID is the unique identifier.
	ID uuid.UUID `json:"id" db:"id"`
	// Symbol is the asset pair the event covers.
	Symbol string `json:"symbol" db:"symbol"`
	// ThreatType is the ordinal code of the detected threat.
	ThreatType models.ThreatType `json:"threat_type" db:"threat_type"`
	// Severity is the ordinal code of the threat severity.
	Severity models.RiskLevel `json:"severity" db:"severity"`
	// Confidence is the classification confidence on the 0-99 scale.
	Confidence int `json:"confidence" db:"confidence"`
	// SuggestedAction is the ordinal code of the recommended response.
	SuggestedAction models.SuggestedAction `json:"suggested_action" db:"suggested_action"`
	// EstimatedImpact is the projected position impact in percent.
	EstimatedImpact decimal.Decimal `json:"estimated_impact" db:"estimated_impact"`
	// Reasoning is the human-readable classification summary.
	Reasoning string `json:"reasoning" db:"reasoning"`
	// ReasoningHash is the SHA-256 hex digest of Reasoning.
	ReasoningHash string `json:"reasoning_hash" db:"reasoning_hash"`
	// CreatedAt is when the row was written.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// LedgerRepository handles database operations for the risk audit ledger.
type LedgerRepository struct {
	pool DatabasePool
}

// NewLedgerRepository creates a new ledger repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*LedgerRepository: The initialized repository.
func NewLedgerRepository(pool DatabasePool) *LedgerRepository {
	return &LedgerRepository{
		pool: pool,
	}
}

// RecordRiskSnapshot writes a risk assessment to the ledger.
//
// Parameters:
//
//	ctx: Context.
//	snapshot: The assessment to persist.
//
// Returns:
//
//	*RiskLedgerEntry: The created entry.
//	error: Error if operation fails.
func (r *LedgerRepository) RecordRiskSnapshot(ctx context.Context, snapshot models.RiskSnapshot) (*RiskLedgerEntry, error) {
	factorsJSON, err := json.Marshal(snapshot.Factors)
	if err != nil {
		return nil, fmt.Errorf("failed to encode risk factors: %w", err)
	}

	query := `
		INSERT INTO risk_ledger (
			id, symbol, overall_risk, risk_level, confidence,
			liquidation_risk, volatility_risk, protocol_risk, smart_contract_risk,
			factors, reasoning, reasoning_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	entry := RiskLedgerEntry{
		ID:                uuid.New(),
		Symbol:            snapshot.Symbol,
		OverallRisk:       snapshot.OverallRisk,
		RiskLevel:         snapshot.RiskLevel,
		Confidence:        snapshot.Confidence,
		LiquidationRisk:   snapshot.LiquidationRisk,
		VolatilityRisk:    snapshot.VolatilityRisk,
		ProtocolRisk:      snapshot.ProtocolRisk,
		SmartContractRisk: snapshot.SmartContractRisk,
		Factors:           snapshot.Factors,
		Reasoning:         snapshot.Reasoning,
		ReasoningHash:     risk.ReasoningHash(snapshot.Reasoning),
	}

	err = r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.Symbol,
		entry.OverallRisk,
		entry.RiskLevel.Ordinal(),
		entry.Confidence,
		entry.LiquidationRisk,
		entry.VolatilityRisk,
		entry.ProtocolRisk,
		entry.SmartContractRisk,
		factorsJSON,
		entry.Reasoning,
		entry.ReasoningHash,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record risk snapshot: %w", err)
	}

	return &entry, nil
}

// RecordThreatEvent writes a threat classification to the ledger.
//
// Parameters:
//
//	ctx: Context.
//	assessment: The classification to persist.
//
// Returns:
//
//	*ThreatEventEntry: The created entry.
//	error: Error if operation fails.
func (r *LedgerRepository) RecordThreatEvent(ctx context.Context, assessment models.ThreatAssessment) (*ThreatEventEntry, error) {
	query := `
		INSERT INTO threat_events (
			id, symbol, threat_type, severity, confidence,
			suggested_action, estimated_impact, reasoning, reasoning_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	entry := ThreatEventEntry{
		ID:              uuid.New(),
		Symbol:          assessment.Symbol,
		ThreatType:      assessment.ThreatType,
		Severity:        assessment.Severity,
		Confidence:      assessment.Confidence,
		SuggestedAction: assessment.SuggestedAction,
		EstimatedImpact: decimal.NewFromFloat(assessment.EstimatedImpact),
		Reasoning:       assessment.Reasoning,
		ReasoningHash:   risk.ReasoningHash(assessment.Reasoning),
	}

	err := r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.Symbol,
		entry.ThreatType.Ordinal(),
		entry.Severity.Ordinal(),
		entry.Confidence,
		entry.SuggestedAction.Ordinal(),
		entry.EstimatedImpact,
		entry.Reasoning,
		entry.ReasoningHash,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record threat event: %w", err)
	}

	return &entry, nil
}

// RecentRiskSnapshots returns the newest ledger entries for a symbol.
//
// Parameters:
//
//	ctx: Context.
//	symbol: Asset pair to filter on.
//	limit: Maximum number of entries.
//
// Returns:
//
//	[]RiskLedgerEntry: Entries ordered newest first.
//	error: Error if retrieval fails.
func (r *LedgerRepository) RecentRiskSnapshots(ctx context.Context, symbol string, limit int) ([]RiskLedgerEntry, error) {
	query := `
		SELECT id, symbol, overall_risk, risk_level, confidence,
			liquidation_risk, volatility_risk, protocol_risk, smart_contract_risk,
			factors, reasoning, reasoning_hash, created_at
		FROM risk_ledger
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get risk ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []RiskLedgerEntry
	for rows.Next() {
		var entry RiskLedgerEntry
		var level int
		var factorsJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.Symbol,
			&entry.OverallRisk,
			&level,
			&entry.Confidence,
			&entry.LiquidationRisk,
			&entry.VolatilityRisk,
			&entry.ProtocolRisk,
			&entry.SmartContractRisk,
			&factorsJSON,
			&entry.Reasoning,
			&entry.ReasoningHash,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk ledger entry: %w", err)
		}
		entry.RiskLevel = models.RiskLevel(level)
		if len(factorsJSON) > 0 {
			if err := json.Unmarshal(factorsJSON, &entry.Factors); err != nil {
				return nil, fmt.Errorf("failed to decode risk factors: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk ledger entries: %w", err)
	}

	return entries, nil
}

// LatestThreatEvent returns the newest threat event for a symbol, or nil
// when the symbol has no recorded events.
//
// Parameters:
//
//	ctx: Context.
//	symbol: Asset pair to filter on.
//
// Returns:
//
//	*ThreatEventEntry: The newest event, nil if none exists.
//	error: Error if retrieval fails.
func (r *LedgerRepository) LatestThreatEvent(ctx context.Context, symbol string) (*ThreatEventEntry, error) {
	query := `
		SELECT id, symbol, threat_type, severity, confidence,
			suggested_action, estimated_impact, reasoning, reasoning_hash, created_at
		FROM threat_events
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var entry ThreatEventEntry
	var threatType, severity, action int
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&entry.ID,
		&entry.Symbol,
		&threatType,
		&severity,
		&entry.Confidence,
		&action,
		&entry.EstimatedImpact,
		&entry.Reasoning,
		&entry.ReasoningHash,
		&entry.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows || err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest threat event: %w", err)
	}
	entry.ThreatType = models.ThreatType(threatType)
	entry.Severity = models.RiskLevel(severity)
	entry.SuggestedAction = models.SuggestedAction(action)

	return &entry, nil
}

// RecentThreatEvents returns the newest threat events for a symbol.
//
// Parameters:
//
//	ctx: Context.
//	symbol: Asset pair to filter on.
//	limit: Maximum number of entries.
//
// Returns:
//
//	[]ThreatEventEntry: Events ordered newest first.
//	error: Error if retrieval fails.
func (r *LedgerRepository) RecentThreatEvents(ctx context.Context, symbol string, limit int) ([]ThreatEventEntry, error) {
	query := `
		SELECT id, symbol, threat_type, severity, confidence,
			suggested_action, estimated_impact, reasoning, reasoning_hash, created_at
		FROM threat_events
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get threat events: %w", err)
	}
	defer rows.Close()

	var entries []ThreatEventEntry
	for rows.Next() {
		var entry ThreatEventEntry
		var threatType, severity, action int
		err := rows.Scan(
			&entry.ID,
			&entry.Symbol,
			&threatType,
			&severity,
			&entry.Confidence,
			&action,
			&entry.EstimatedImpact,
			&entry.Reasoning,
			&entry.ReasoningHash,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan threat event: %w", err)
		}
		entry.ThreatType = models.ThreatType(threatType)
		entry.Severity = models.RiskLevel(severity)
		entry.SuggestedAction = models.SuggestedAction(action)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threat events: %w", err)
	}

	return entries, nil
}

// PruneOlderThan deletes ledger rows written before the cutoff.
//
// Parameters:
//
//	ctx: Context.
//	cutoff: Rows older than this are removed.
//
// Returns:
//
//	int64: Number of rows deleted across both tables.
//	error: Error if pruning fails.
func (r *LedgerRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	result, err := r.pool.Exec(ctx, `DELETE FROM risk_ledger WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune risk ledger: %w", err)
	}
	total += result.RowsAffected()

	result, err = r.pool.Exec(ctx, `DELETE FROM threat_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("failed to prune threat events: %w", err)
	}
	total += result.RowsAffected()

	return total, nil
}
