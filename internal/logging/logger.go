package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging surface shared by the monitor loop,
// the cache, and the HTTP handlers. Both the plain stdout logger and the
// OTLP-backed logger implement it.
type Logger interface {
	WithComponent(componentName string) *slog.Logger
	WithOperation(operationName string) *slog.Logger
	WithSymbol(symbol string) *slog.Logger
	WithError(err error) *slog.Logger
	LogStartup(serviceName string, version string, port int)
	LogShutdown(serviceName string, reason string)
	LogAssessment(symbol string, overallRisk int, level string, confidence int)
	LogThreatEvent(symbol string, threatType string, severity string, action string, impact float64)
	LogCacheOperation(operation string, key string, hit bool, duration int64)
	LogAPIRequest(method string, path string, statusCode int, duration int64)
	Logger() *slog.Logger
}

// StandardLogger provides a standardized logging interface
type StandardLogger struct {
	logger Logger
}

// NewStandardLogger creates a stdout-backed logger. Used until telemetry
// is initialized, and as the permanent logger when OTLP is disabled.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))

	return &StandardLogger{
		logger: &fallbackLogger{logger: logger},
	}
}

// NewStandardOTLPLogger creates a logger that ships records to an OTLP
// collector, falling back to stdout when the exporter cannot be built.
func NewStandardOTLPLogger(config OTLPConfig) *StandardLogger {
	otlpLogger, err := NewOTLPLogger(config)
	if err != nil {
		basic := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: getSlogLevel(config.LogLevel),
		}))
		return &StandardLogger{logger: &fallbackLogger{logger: basic}}
	}
	return &StandardLogger{logger: &otlpWrapper{logger: otlpLogger}}
}

// SetLogger sets the underlying logger implementation
func (l *StandardLogger) SetLogger(logger Logger) {
	l.logger = logger
}

// WithComponent creates a logger with component context
func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.WithComponent(componentName)
}

// WithOperation creates a logger with operation context
func (l *StandardLogger) WithOperation(operationName string) *slog.Logger {
	return l.logger.WithOperation(operationName)
}

// WithSymbol creates a logger with asset pair context
func (l *StandardLogger) WithSymbol(symbol string) *slog.Logger {
	return l.logger.WithSymbol(symbol)
}

// WithError creates a logger with error context
func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.WithError(err)
}

// LogStartup logs application startup information
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.LogStartup(serviceName, version, port)
}

// LogShutdown logs application shutdown information
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.LogShutdown(serviceName, reason)
}

// LogAssessment logs a completed risk assessment in a standardized format
func (l *StandardLogger) LogAssessment(symbol string, overallRisk int, level string, confidence int) {
	l.logger.LogAssessment(symbol, overallRisk, level, confidence)
}

// LogThreatEvent logs a threat classification in a standardized format
func (l *StandardLogger) LogThreatEvent(symbol string, threatType string, severity string, action string, impact float64) {
	l.logger.LogThreatEvent(symbol, threatType, severity, action, impact)
}

// LogCacheOperation logs cache operations in a standardized format
func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	l.logger.LogCacheOperation(operation, key, hit, duration)
}

// LogAPIRequest logs API requests in a standardized format
func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, duration int64) {
	l.logger.LogAPIRequest(method, path, statusCode, duration)
}

// Logger returns the underlying *slog.Logger
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger.Logger()
}

// getSlogLevel converts string level to slog.Level
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogrusLogger builds the logrus logger handed to the scoring engine.
// Development gets human-readable text output, everything else JSON.
func NewLogrusLogger(logLevel string, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLogrusLevel(logLevel))
	if environment == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// otlpWrapper wraps OTLPLogger to implement Logger interface
type otlpWrapper struct {
	logger *OTLPLogger
}

func (o *otlpWrapper) WithComponent(componentName string) *slog.Logger {
	return o.logger.logger.With("component", componentName)
}

func (o *otlpWrapper) WithOperation(operationName string) *slog.Logger {
	return o.logger.logger.With("operation", operationName)
}

func (o *otlpWrapper) WithSymbol(symbol string) *slog.Logger {
	return o.logger.logger.With("symbol", symbol)
}

func (o *otlpWrapper) WithError(err error) *slog.Logger {
	return o.logger.logger.With("error", err.Error())
}

func (o *otlpWrapper) LogStartup(serviceName string, version string, port int) {
	o.logger.logger.Info("Service starting",
		"event", "startup",
		"service", serviceName,
		"version", version,
		"port", port,
	)
}

func (o *otlpWrapper) LogShutdown(serviceName string, reason string) {
	o.logger.logger.Info("Service shutting down",
		"event", "shutdown",
		"service", serviceName,
		"reason", reason,
	)
}

func (o *otlpWrapper) LogAssessment(symbol string, overallRisk int, level string, confidence int) {
	o.logger.logger.Info("Risk assessment completed",
		"event", "risk_assessment",
		"symbol", symbol,
		"overall_risk", overallRisk,
		"risk_level", level,
		"confidence", confidence,
	)
}

func (o *otlpWrapper) LogThreatEvent(symbol string, threatType string, severity string, action string, impact float64) {
	o.logger.logger.Warn("Threat detected",
		"event", "threat_detected",
		"symbol", symbol,
		"threat_type", threatType,
		"severity", severity,
		"suggested_action", action,
		"estimated_impact", impact,
	)
}

func (o *otlpWrapper) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	o.logger.logger.Debug("Cache operation",
		"event", "cache_operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"duration_ms", duration,
	)
}

func (o *otlpWrapper) LogAPIRequest(method string, path string, statusCode int, duration int64) {
	o.logger.logger.Info("API request",
		"event", "api_request",
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration,
	)
}

func (o *otlpWrapper) Logger() *slog.Logger {
	return o.logger.logger
}

// fallbackLogger is a simple implementation that uses slog directly
// This is used as a fallback when OTLP is not configured
type fallbackLogger struct {
	logger *slog.Logger
}

func (f *fallbackLogger) WithComponent(componentName string) *slog.Logger {
	return f.logger.With("component", componentName)
}

func (f *fallbackLogger) WithOperation(operationName string) *slog.Logger {
	return f.logger.With("operation", operationName)
}

func (f *fallbackLogger) WithSymbol(symbol string) *slog.Logger {
	return f.logger.With("symbol", symbol)
}

func (f *fallbackLogger) WithError(err error) *slog.Logger {
	return f.logger.With("error", err.Error())
}

func (f *fallbackLogger) LogStartup(serviceName string, version string, port int) {
	f.logger.Info("Service starting",
		"event", "startup",
		"service", serviceName,
		"version", version,
		"port", port,
	)
}

func (f *fallbackLogger) LogShutdown(serviceName string, reason string) {
	f.logger.Info("Service shutting down",
		"event", "shutdown",
		"service", serviceName,
		"reason", reason,
	)
}

func (f *fallbackLogger) LogAssessment(symbol string, overallRisk int, level string, confidence int) {
	f.logger.Info("Risk assessment completed",
		"event", "risk_assessment",
		"symbol", symbol,
		"overall_risk", overallRisk,
		"risk_level", level,
		"confidence", confidence,
	)
}

func (f *fallbackLogger) LogThreatEvent(symbol string, threatType string, severity string, action string, impact float64) {
	f.logger.Warn("Threat detected",
		"event", "threat_detected",
		"symbol", symbol,
		"threat_type", threatType,
		"severity", severity,
		"suggested_action", action,
		"estimated_impact", impact,
	)
}

func (f *fallbackLogger) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	f.logger.Debug("Cache operation",
		"event", "cache_operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"duration_ms", duration,
	)
}

func (f *fallbackLogger) LogAPIRequest(method string, path string, statusCode int, duration int64) {
	f.logger.Info("API request",
		"event", "api_request",
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration,
	)
}

func (f *fallbackLogger) Logger() *slog.Logger {
	return f.logger
}
