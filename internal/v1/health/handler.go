// Package health exposes Kubernetes-style liveness and readiness probes.
//
// Liveness answers "is the process up" with no dependency checks. Readiness
// runs every registered probe and fails closed: one unhealthy dependency
// makes the whole endpoint report 503 so the load balancer stops routing
// new connections here.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sketchroom/backend/internal/v1/logging"
)

// Check is one named readiness probe. Probe returns nil when the dependency
// is usable.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Handler manages the health check endpoints.
type Handler struct {
	checks []Check
}

// NewHandler creates a health handler with the given readiness checks.
// Liveness never consults them.
func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks}
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles GET /health and GET /health/live.
// Returns 200 whenever the process is alive.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles GET /health/ready.
// Returns 200 only if every registered check passes, 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true

	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			logging.Error(ctx, "readiness check failed",
				zap.String("check", check.Name), zap.Error(err))
			checks[check.Name] = "unhealthy"
			allHealthy = false
			continue
		}
		checks[check.Name] = "healthy"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
