// Package httptransport assembles the HTTP surface: domain handlers, the
// shared middleware chain, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	deletionHandler "convene/internal/deletion/handler"
	"convene/internal/platform/middleware"
	registrationHandler "convene/internal/registration/handler"
)

// NewRouter wires all endpoints. Handlers stay thin: verb routing, parsing
// and error translation here, lifecycle rules in the services.
func NewRouter(
	registration *registrationHandler.Handler,
	deletion *deletionHandler.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	registration.Register(r)
	deletion.Register(r)

	return r
}
