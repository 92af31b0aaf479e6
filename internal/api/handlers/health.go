package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wardenlabs/defi-sentinel/internal/services"
)

var startTime = time.Now()

// HealthChecker is satisfied by the postgres and redis wrappers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MonitorHealth reports the state of the monitor loop's watchers.
type MonitorHealth interface {
	IsHealthy() bool
	WatcherStatus() map[string]services.Watcher
}

// ResourceSource exposes the latest host resource sample.
type ResourceSource interface {
	Current() (services.ResourceStats, bool)
}

type HealthHandler struct {
	db        HealthChecker
	redis     HealthChecker
	monitor   MonitorHealth
	resources ResourceSource
	version   string
}

type HealthResponse struct {
	Status    string                      `json:"status"`
	Timestamp time.Time                   `json:"timestamp"`
	Version   string                      `json:"version"`
	Uptime    string                      `json:"uptime"`
	Services  map[string]string           `json:"services"`
	Watchers  map[string]services.Watcher `json:"watchers,omitempty"`
	Resources *services.ResourceStats     `json:"resources,omitempty"`
}

func NewHealthHandler(db, redis HealthChecker, monitor MonitorHealth, resources ResourceSource, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		monitor:   monitor,
		resources: resources,
		version:   version,
	}
}

// HealthCheck reports overall service health including backing stores, the
// monitor loop, and host resource usage.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks := map[string]string{}

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
		Services:  checks,
	}

	if h.monitor != nil {
		if h.monitor.IsHealthy() {
			checks["monitor"] = "healthy"
		} else {
			checks["monitor"] = "unhealthy: watchers stopped"
		}
		response.Watchers = h.monitor.WatcherStatus()
	}

	if h.resources != nil {
		if stats, ok := h.resources.Current(); ok {
			response.Resources = &stats
		}
	}

	statusCode := http.StatusOK
	for name, status := range checks {
		if name == "database" || name == "redis" {
			if status != "healthy" && status != "not configured" {
				response.Status = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
			continue
		}
		if status != "healthy" {
			response.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.JSON(statusCode, response)
}

// LivenessCheck only confirms the process is responsive.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
