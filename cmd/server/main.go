package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/wardenlabs/defi-sentinel/internal/api"
	"github.com/wardenlabs/defi-sentinel/internal/cache"
	"github.com/wardenlabs/defi-sentinel/internal/config"
	"github.com/wardenlabs/defi-sentinel/internal/database"
	"github.com/wardenlabs/defi-sentinel/internal/logging"
	"github.com/wardenlabs/defi-sentinel/internal/models"
	"github.com/wardenlabs/defi-sentinel/internal/provider"
	"github.com/wardenlabs/defi-sentinel/internal/risk"
	"github.com/wardenlabs/defi-sentinel/internal/services"
	"github.com/wardenlabs/defi-sentinel/internal/telemetry"
)

const serviceVersion = "1.0.0"

// alertSeverity parses the configured alert floor, defaulting to HIGH when
// the value is missing or unknown.
func alertSeverity(name string) models.RiskLevel {
	if parsed, err := models.ParseRiskLevel(name); err == nil {
		return parsed
	}
	return models.RiskLevelHigh
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogrusLogger(cfg.LogLevel, cfg.Environment)
	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"version":     serviceVersion,
	}).Info("Starting defi-sentinel")

	tracerProvider, err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize telemetry")
	}

	events := logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
	events.LogStartup(cfg.Telemetry.ServiceName, serviceVersion, cfg.Server.Port)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	ledger := database.NewLedgerRepository(db.Pool)
	snapshots := cache.NewRedisSnapshotCache(redisClient.Client, cfg.Monitor.SnapshotCacheTTLDuration(), logger)

	// The simulated chain reader stands in for an on-chain indexer. The
	// breaker fails fast when the upstream is down; the cache layer in
	// front absorbs repeated API reads within a poll.
	chainReader := provider.NewResilientProvider(provider.NewSimulatedProvider(), provider.BreakerConfig{}, logger)
	dataProvider := provider.NewCachedProvider(chainReader, snapshots)

	engine := risk.NewEngine(risk.Config{MaxHistory: cfg.Risk.MaxHistory}, logger)
	trends := services.NewTrendAnalyzer(logger)

	notifier, err := services.NewNotificationService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, alertSeverity(cfg.Risk.AlertSeverity), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize notifier")
	}

	retention := services.NewRetentionService(ledger)
	retention.Start(services.RetentionConfig{})
	defer retention.Stop()

	resources := services.NewResourceMonitor(30*time.Second, logger)
	resources.Start(context.Background())
	defer resources.Stop()

	monitor := services.NewMonitorService(dataProvider, engine, ledger, notifier, trends, services.MonitorConfig{
		PollInterval: cfg.Monitor.PollIntervalDuration(),
		MaxErrors:    cfg.Monitor.MaxErrors,
		Assets:       cfg.Monitor.Assets,
	}, logger)
	if err := monitor.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start monitor")
	}
	defer monitor.Stop()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.Dependencies{
		DB:        db,
		Redis:     redisClient,
		Ledger:    ledger,
		Engine:    engine,
		Monitor:   monitor,
		Trends:    trends,
		Resources: resources,
		Provider:  dataProvider,
		Snapshots: snapshots,
		JWTSecret: cfg.Security.JWTSecret,
		Version:   serviceVersion,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
	events.LogShutdown(cfg.Telemetry.ServiceName, "signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Telemetry shutdown failed")
	}

	logger.Info("Server exited")
}
