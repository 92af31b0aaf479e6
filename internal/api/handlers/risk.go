package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wardenlabs/defi-sentinel/internal/models"
	"github.com/wardenlabs/defi-sentinel/internal/risk"
	"github.com/wardenlabs/defi-sentinel/internal/utils"
)

const defaultHistoryLimit = 50

// assessmentSource exposes the monitor's latest per-symbol results.
type assessmentSource interface {
	LatestRisk(symbol string) (models.RiskSnapshot, bool)
	LatestThreat(symbol string) (models.ThreatAssessment, bool)
}

type RiskHandler struct {
	engine  *risk.Engine
	monitor assessmentSource
}

func NewRiskHandler(engine *risk.Engine, monitor assessmentSource) *RiskHandler {
	return &RiskHandler{engine: engine, monitor: monitor}
}

// RiskHistoryResponse wraps the engine's retained scoring history.
type RiskHistoryResponse struct {
	Data      []models.RiskSnapshot `json:"data"`
	Total     int                   `json:"total"`
	Timestamp time.Time             `json:"timestamp"`
}

// GetLatestRisk returns the most recent assessment for a monitored symbol.
func (h *RiskHandler) GetLatestRisk(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}

	snapshot, ok := h.monitor.LatestRisk(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no assessment recorded for symbol", "symbol": symbol})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetRiskHistory returns retained assessments, optionally filtered by symbol.
func (h *RiskHandler) GetRiskHistory(c *gin.Context) {
	limit := parseLimit(c, defaultHistoryLimit)
	symbol := c.Query("symbol")

	history := h.engine.History()
	if symbol != "" {
		filtered := history[:0:0]
		for _, snapshot := range history {
			if snapshot.Symbol == symbol {
				filtered = append(filtered, snapshot)
			}
		}
		history = filtered
	}

	// Most recent first
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	c.JSON(http.StatusOK, RiskHistoryResponse{
		Data:      history,
		Total:     len(history),
		Timestamp: time.Now(),
	})
}

// AssessRequest is an on-demand scoring request carrying raw market data.
type AssessRequest struct {
	Snapshot models.MarketSnapshot   `json:"snapshot"`
	Position *models.PositionContext `json:"position,omitempty"`
}

// AssessResponse bundles the score and threat classification for one snapshot.
type AssessResponse struct {
	Risk   models.RiskSnapshot     `json:"risk"`
	Threat models.ThreatAssessment `json:"threat"`
}

// Assess scores a caller-supplied snapshot without touching the monitor loop
// or the ledger.
func (h *RiskHandler) Assess(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := req.Snapshot.Validate(); err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, AssessResponse{
		Risk:   h.engine.ScoreRisk(req.Snapshot, req.Position),
		Threat: h.engine.DetectThreats(req.Snapshot, req.Position),
	})
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
