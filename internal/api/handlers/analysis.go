package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenlabs/defi-sentinel/internal/services"
)

type AnalysisHandler struct {
	trends *services.TrendAnalyzer
}

func NewAnalysisHandler(trends *services.TrendAnalyzer) *AnalysisHandler {
	return &AnalysisHandler{trends: trends}
}

// GetTrend returns the indicator readout for a symbol once enough price
// samples have accumulated.
func (h *AnalysisHandler) GetTrend(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}

	analysis, err := h.trends.Analyze(symbol)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":       err.Error(),
			"symbol":      symbol,
			"samples":     h.trends.Samples(symbol),
			"min_samples": h.trends.MinSamples(),
		})
		return
	}

	c.JSON(http.StatusOK, analysis)
}
