package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	std := &StandardLogger{}
	std.SetLogger(&fallbackLogger{logger: logger})
	return std
}

func TestGetSlogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, getSlogLevel(tt.input), "level %q", tt.input)
	}
}

func TestParseLogrusLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogrusLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLogrusLevel("Warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogrusLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogrusLevel("anything-else"))
}

func TestNewLogrusLogger_Formatters(t *testing.T) {
	dev := NewLogrusLogger("debug", "development")
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)

	prod := NewLogrusLogger("warn", "production")
	assert.Equal(t, logrus.WarnLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
}

func TestNewStandardLogger(t *testing.T) {
	std := NewStandardLogger("info", "development")
	assert.NotNil(t, std)
	assert.NotNil(t, std.Logger())
}

func TestStandardLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	std := newBufferLogger(&buf)

	std.WithSymbol("BNB/USDT").Info("snapshot fetched")
	output := buf.String()
	assert.Contains(t, output, `"symbol":"BNB/USDT"`)
	assert.Contains(t, output, "snapshot fetched")

	buf.Reset()
	std.WithComponent("monitor").Info("tick")
	assert.Contains(t, buf.String(), `"component":"monitor"`)

	buf.Reset()
	std.WithOperation("score_risk").Debug("scored")
	assert.Contains(t, buf.String(), `"operation":"score_risk"`)

	buf.Reset()
	std.WithError(errors.New("pool exhausted")).Error("fetch failed")
	assert.Contains(t, buf.String(), "pool exhausted")
}

func TestStandardLogger_LogAssessment(t *testing.T) {
	var buf bytes.Buffer
	std := newBufferLogger(&buf)

	std.LogAssessment("BNB/USDT", 8, "NONE", 88)
	output := buf.String()
	assert.Contains(t, output, `"event":"risk_assessment"`)
	assert.Contains(t, output, `"symbol":"BNB/USDT"`)
	assert.Contains(t, output, `"overall_risk":8`)
	assert.Contains(t, output, `"risk_level":"NONE"`)
	assert.Contains(t, output, `"confidence":88`)
}

func TestStandardLogger_LogThreatEvent(t *testing.T) {
	var buf bytes.Buffer
	std := newBufferLogger(&buf)

	std.LogThreatEvent("SCAM/USDT", "RUG_PULL", "CRITICAL", "EMERGENCY_WITHDRAW", 85)
	output := buf.String()
	assert.Contains(t, output, `"event":"threat_detected"`)
	assert.Contains(t, output, `"threat_type":"RUG_PULL"`)
	assert.Contains(t, output, `"severity":"CRITICAL"`)
	assert.Contains(t, output, `"suggested_action":"EMERGENCY_WITHDRAW"`)
	assert.Contains(t, output, `"level":"WARN"`)
}

func TestStandardLogger_LifecycleEvents(t *testing.T) {
	var buf bytes.Buffer
	std := newBufferLogger(&buf)

	std.LogStartup("defi-sentinel", "1.0.0", 8080)
	assert.Contains(t, buf.String(), `"event":"startup"`)
	assert.Contains(t, buf.String(), `"port":8080`)

	buf.Reset()
	std.LogShutdown("defi-sentinel", "signal received")
	assert.Contains(t, buf.String(), `"event":"shutdown"`)
	assert.Contains(t, buf.String(), "signal received")
}

func TestStandardLogger_CacheAndAPIEvents(t *testing.T) {
	var buf bytes.Buffer
	std := newBufferLogger(&buf)

	std.LogCacheOperation("get", "snapshot:BNB/USDT", true, 2)
	assert.Contains(t, buf.String(), `"event":"cache_operation"`)
	assert.Contains(t, buf.String(), `"hit":true`)

	buf.Reset()
	std.LogAPIRequest("GET", "/api/v1/risk/latest", 200, 12)
	assert.Contains(t, buf.String(), `"event":"api_request"`)
	assert.Contains(t, buf.String(), `"status_code":200`)
}

func TestNewOTLPLogger_Disabled(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())

	// Shutdown must be a no-op when OTLP is disabled
	assert.NoError(t, logger.Shutdown(context.Background()))
}

func TestNewStandardOTLPLogger_DisabledFallsBack(t *testing.T) {
	std := NewStandardOTLPLogger(OTLPConfig{
		Enabled:  false,
		LogLevel: "info",
	})
	assert.NotNil(t, std)
	assert.NotNil(t, std.Logger())
}

func TestOTLPHandler_Interface(t *testing.T) {
	h := NewOTLPHandler(nil)

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.Equal(t, h, h.WithAttrs(nil))
	assert.Equal(t, h, h.WithGroup("group"))
}
