package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wardenlabs/defi-sentinel/internal/database"
)

const defaultLedgerLimit = 20

// ledgerReader reads persisted assessments and threat events.
type ledgerReader interface {
	RecentRiskSnapshots(ctx context.Context, symbol string, limit int) ([]database.RiskLedgerEntry, error)
	RecentThreatEvents(ctx context.Context, symbol string, limit int) ([]database.ThreatEventEntry, error)
}

type LedgerHandler struct {
	ledger ledgerReader
}

func NewLedgerHandler(ledger ledgerReader) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// LedgerEntriesResponse returns both ledger tables for one symbol so a client
// can reconstruct the decision trail in a single call.
type LedgerEntriesResponse struct {
	Symbol    string                       `json:"symbol"`
	Risk      []database.RiskLedgerEntry   `json:"risk"`
	Threats   []database.ThreatEventEntry  `json:"threats"`
	Timestamp time.Time                    `json:"timestamp"`
}

// GetEntries returns recent persisted entries for a symbol.
func (h *LedgerHandler) GetEntries(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}
	limit := parseLimit(c, defaultLedgerLimit)

	ctx := c.Request.Context()
	riskEntries, err := h.ledger.RecentRiskSnapshots(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read risk ledger: " + err.Error()})
		return
	}

	threatEntries, err := h.ledger.RecentThreatEvents(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read threat events: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, LedgerEntriesResponse{
		Symbol:    symbol,
		Risk:      riskEntries,
		Threats:   threatEntries,
		Timestamp: time.Now(),
	})
}
