package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/wardenlabs/defi-sentinel/internal/api/handlers"
	"github.com/wardenlabs/defi-sentinel/internal/cache"
	"github.com/wardenlabs/defi-sentinel/internal/database"
	"github.com/wardenlabs/defi-sentinel/internal/middleware"
	"github.com/wardenlabs/defi-sentinel/internal/provider"
	"github.com/wardenlabs/defi-sentinel/internal/risk"
	"github.com/wardenlabs/defi-sentinel/internal/services"
)

// Dependencies carries everything the route tree needs. Nil entries disable
// the routes that would use them.
type Dependencies struct {
	DB        *database.PostgresDB
	Redis     *database.RedisClient
	Ledger    *database.LedgerRepository
	Engine    *risk.Engine
	Monitor   *services.MonitorService
	Trends    *services.TrendAnalyzer
	Resources *services.ResourceMonitor
	Provider  provider.MarketDataProvider
	Snapshots *cache.RedisSnapshotCache
	JWTSecret string
	Version   string
}

// SetupRoutes wires the full route tree onto a router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(otelgin.Middleware("defi-sentinel"))

	// Interface fields stay nil when the concrete pointer is nil so the
	// handler can test for absence.
	var dbCheck, redisCheck handlers.HealthChecker
	if deps.DB != nil {
		dbCheck = deps.DB
	}
	if deps.Redis != nil {
		redisCheck = deps.Redis
	}
	var monitorHealth handlers.MonitorHealth
	if deps.Monitor != nil {
		monitorHealth = deps.Monitor
	}
	var resources handlers.ResourceSource
	if deps.Resources != nil {
		resources = deps.Resources
	}

	healthHandler := handlers.NewHealthHandler(dbCheck, redisCheck, monitorHealth, resources, deps.Version)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	riskHandler := handlers.NewRiskHandler(deps.Engine, deps.Monitor)
	threatHandler := handlers.NewThreatHandler(deps.Monitor)
	marketHandler := handlers.NewMarketHandler(deps.Provider)
	analysisHandler := handlers.NewAnalysisHandler(deps.Trends)

	v1 := router.Group("/api/v1")
	{
		riskGroup := v1.Group("/risk")
		{
			riskGroup.GET("/latest", riskHandler.GetLatestRisk)
			riskGroup.GET("/history", riskHandler.GetRiskHistory)
			riskGroup.POST("/assess", riskHandler.Assess)
		}

		v1.GET("/threats/latest", threatHandler.GetLatestThreat)
		v1.GET("/market/snapshot", marketHandler.GetSnapshot)
		v1.GET("/analysis/trend", analysisHandler.GetTrend)

		// The ledger exposes the full decision trail; access requires a
		// signed token.
		if deps.Ledger != nil {
			auth := middleware.NewAuthMiddleware(deps.JWTSecret)
			ledgerHandler := handlers.NewLedgerHandler(deps.Ledger)
			v1.GET("/ledger/entries", auth.RequireAuth(), ledgerHandler.GetEntries)
		}

		operator := middleware.NewOperatorMiddleware()
		operatorHandler := handlers.NewOperatorHandler(deps.Monitor, deps.Snapshots)
		ops := v1.Group("/operator", operator.RequireOperatorAuth())
		{
			ops.POST("/positions", operatorHandler.SetPosition)
			ops.DELETE("/positions", operatorHandler.ClearPosition)
			ops.DELETE("/cache/snapshots", operatorHandler.FlushSnapshotCache)
		}
	}
}
