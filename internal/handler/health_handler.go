package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is any dependency that can report liveness.
type HealthChecker func(ctx context.Context) error

// HealthHandler reports per-dependency health. The endpoint answers 200 as
// long as the process is up; individual dependency failures show in the body
// so degraded states are visible without failing platform health probes.
type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = "unhealthy: " + err.Error()
		} else {
			status[name] = "healthy"
		}
	}

	writeSuccess(w, http.StatusOK, status, "")
}
