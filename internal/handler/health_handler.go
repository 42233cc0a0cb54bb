package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a new health handler. Nil checkers are skipped
// so a deployment without Redis still reports ready.
func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	checks := make(map[string]HealthChecker)
	if db != nil {
		checks["database"] = db
	}
	if redis != nil {
		checks["redis"] = redis
	}
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	status := "ready"
	code := http.StatusOK
	results := make(gin.H, len(h.checks))

	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			status = "not ready"
			code = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
	})
}
