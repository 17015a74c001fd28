package httpx

import (
	"log/slog"
	"net/http"

	"github.com/entropix/entropy-certify/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Validations *service.ValidationService
	Sync        *service.SyncValidationService
	// HealthChecks are optional dependency probes surfaced on /healthz.
	HealthChecks map[string]HealthCheck
	Logger       *slog.Logger
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	validationHandlers := &ValidationHandlers{
		Svc:  services.Validations,
		Sync: services.Sync,
	}
	healthHandlers := &HealthHandlers{Checks: services.HealthChecks}

	registerValidationRoutes(mux, validationHandlers)
	mux.HandleFunc("GET /healthz", healthHandlers.Health)
	mux.HandleFunc("HEAD /healthz", healthHandlers.Health)

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Recover(logger)(Logging(logger)(mux))
}

func registerValidationRoutes(mux *http.ServeMux, h *ValidationHandlers) {
	mux.HandleFunc("POST /api/validations", h.Create)
	mux.HandleFunc("GET /api/validations/{id}/status", h.GetStatus)
	mux.HandleFunc("GET /api/validations/{id}/result", h.GetResult)
	mux.HandleFunc("POST /api/validations/sync", h.SyncValidate)
}
