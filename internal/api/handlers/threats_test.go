package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/defi-sentinel/internal/models"
)

func threatRouter(h *ThreatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/threats/latest", h.GetLatestThreat)
	return router
}

func TestThreatHandler_GetLatestThreat(t *testing.T) {
	monitor := &stubAssessments{threats: map[string]models.ThreatAssessment{
		"SCAM/USDT": {
			Symbol:          "SCAM/USDT",
			ThreatDetected:  true,
			ThreatType:      models.ThreatRugPull,
			Severity:        models.RiskLevelCritical,
			Confidence:      92,
			SuggestedAction: models.ActionEmergencyWithdraw,
			EstimatedImpact: 85,
		},
	}}
	router := threatRouter(NewThreatHandler(monitor))

	w := performRequest(router, "GET", "/threats/latest?symbol=SCAM/USDT")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"threat_type":"RUG_PULL"`)
	assert.Contains(t, w.Body.String(), `"suggested_action":"EMERGENCY_WITHDRAW"`)
}

func TestThreatHandler_GetLatestThreat_NoScan(t *testing.T) {
	router := threatRouter(NewThreatHandler(&stubAssessments{}))

	w := performRequest(router, "GET", "/threats/latest?symbol=BNB/USDT")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThreatHandler_GetLatestThreat_CleanScanIsStillAResult(t *testing.T) {
	monitor := &stubAssessments{threats: map[string]models.ThreatAssessment{
		"BNB/USDT": {Symbol: "BNB/USDT", ThreatDetected: false, ThreatType: models.ThreatNone, Confidence: 95},
	}}
	router := threatRouter(NewThreatHandler(monitor))

	w := performRequest(router, "GET", "/threats/latest?symbol=BNB/USDT")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"threat_detected":false`)
}

func TestThreatHandler_GetLatestThreat_MissingSymbol(t *testing.T) {
	router := threatRouter(NewThreatHandler(&stubAssessments{}))

	w := performRequest(router, "GET", "/threats/latest")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
