package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenlabs/defi-sentinel/internal/cache"
	"github.com/wardenlabs/defi-sentinel/internal/models"
)

// positionStore accepts per-symbol position context for threat classification.
type positionStore interface {
	SetPosition(symbol string, position *models.PositionContext)
}

type OperatorHandler struct {
	positions positionStore
	snapshots *cache.RedisSnapshotCache
}

func NewOperatorHandler(positions positionStore, snapshots *cache.RedisSnapshotCache) *OperatorHandler {
	return &OperatorHandler{positions: positions, snapshots: snapshots}
}

// PositionRequest configures the position context applied to future
// assessments of one symbol.
type PositionRequest struct {
	Symbol   string                 `json:"symbol" binding:"required"`
	Position models.PositionContext `json:"position"`
}

// SetPosition stores the position context for a monitored symbol.
func (h *OperatorHandler) SetPosition(c *gin.Context) {
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	h.positions.SetPosition(req.Symbol, &req.Position)
	c.JSON(http.StatusOK, gin.H{"symbol": req.Symbol, "status": "position updated"})
}

// ClearPosition removes the position context for a symbol, reverting threat
// classification to the no-position defaults.
func (h *OperatorHandler) ClearPosition(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}

	h.positions.SetPosition(symbol, nil)
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "status": "position cleared"})
}

// FlushSnapshotCache drops all cached market snapshots.
func (h *OperatorHandler) FlushSnapshotCache(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot cache not configured"})
		return
	}

	if err := h.snapshots.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to flush snapshot cache: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "snapshot cache flushed"})
}
