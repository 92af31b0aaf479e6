package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wardenlabs/defi-sentinel/internal/models"
	"github.com/wardenlabs/defi-sentinel/internal/provider"
)

type MarketHandler struct {
	provider provider.MarketDataProvider
}

func NewMarketHandler(dataProvider provider.MarketDataProvider) *MarketHandler {
	return &MarketHandler{provider: dataProvider}
}

// MarketSnapshotResponse wraps a snapshot with its source and fetch time.
type MarketSnapshotResponse struct {
	Source    string                `json:"source"`
	Snapshot  models.MarketSnapshot `json:"snapshot"`
	Timestamp time.Time             `json:"timestamp"`
}

// GetSnapshot fetches the current market snapshot for a symbol through the
// configured provider chain.
func (h *MarketHandler) GetSnapshot(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}

	snapshot, err := h.provider.FetchSnapshot(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch snapshot: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, MarketSnapshotResponse{
		Source:    h.provider.Name(),
		Snapshot:  snapshot,
		Timestamp: time.Now(),
	})
}
