package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ThreatHandler struct {
	monitor assessmentSource
}

func NewThreatHandler(monitor assessmentSource) *ThreatHandler {
	return &ThreatHandler{monitor: monitor}
}

// GetLatestThreat returns the most recent threat classification for a symbol.
// A classification with no detected threat is still a valid result.
func (h *ThreatHandler) GetLatestThreat(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}

	assessment, ok := h.monitor.LatestThreat(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no threat scan recorded for symbol", "symbol": symbol})
		return
	}

	c.JSON(http.StatusOK, assessment)
}
