package http_handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/logger"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/response"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewHealthHandler takes the readiness dependencies by name (e.g. "postgres",
// "redis", "rabbitmq"). Nil checkers are skipped.
func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	clean := make(map[string]Checker, len(checks))
	for name, c := range checks {
		if c != nil {
			clean[name] = c
		}
	}
	return &HealthHandler{checks: clean, timeout: 2 * time.Second}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			logger.WithCtx(r.Context()).Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{"status": "ready", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	response.WriteJSON(w, status, body)
}
