package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/infrastructure/logger"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports whether the service and its dependencies are up
type HealthHandler struct {
	checks map[string]HealthCheck
	stats  func() (any, error)
	now    func() time.Time
}

// NewHealthHandler creates a HealthHandler with named dependency checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, now: time.Now}
}

// WithStats attaches a connection pool snapshot to the detailed report
func (h *HealthHandler) WithStats(stats func() (any, error)) *HealthHandler {
	h.stats = stats
	return h
}

// Live answers as long as the process serves HTTP.
//
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every dependency check. One failure makes the service unhealthy.
//
// GET /health
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := gin.H{
		"status":       "healthy",
		"time":         h.now().Format(time.RFC3339),
		"dependencies": deps,
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	if h.stats != nil && c.Query("detail") == "true" {
		if s, err := h.stats(); err == nil {
			body["pool"] = s
		}
	}
	c.JSON(status, body)
}
