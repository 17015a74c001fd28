package httpx

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// HealthHandlers answers readiness/liveness probes. With no checks registered
// it degrades to a plain 200, which is all a liveness probe needs.
type HealthHandlers struct {
	Checks map[string]HealthCheck
}

// Health handles GET/HEAD /healthz. Any failing dependency turns the probe
// into a 503 listing per-dependency state.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}

	body := map[string]any{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	WriteJSON(w, status, body)
}
