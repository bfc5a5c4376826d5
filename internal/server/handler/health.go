package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks connectivity of one backing component.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	components map[string]Pinger
	logger     *slog.Logger
}

// NewHealthHandler creates a HealthHandler. components maps a name to its
// connectivity check; nil values are skipped.
func NewHealthHandler(components map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{components: components, logger: logger}
}

// HealthCheck responds with the server status and per-component checks.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.components))
	for name, p := range h.components {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(checks) > 0 {
		body["components"] = checks
	}
	writeJSON(w, status, body)
}
