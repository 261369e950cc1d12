// Package httptransport assembles the HTTP surface: shared middleware, the
// metrics endpoint and every module's routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marina/internal/platform/metrics"
	"marina/pkg/platform/middleware/metadata"
	"marina/pkg/platform/middleware/request"
	"marina/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// Deps are the collaborators the router needs. Nil Gatherer disables
// /metrics. Ready, when set, backs /readyz.
type Deps struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Ready    func(context.Context) error
	Handlers []Registrar
}

// NewRouter wires the middleware stack and mounts each module.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(requesttime.Middleware(time.Now))
	r.Use(metadata.ClientMetadata)
	if d.Timeout > 0 {
		r.Use(request.Timeout(d.Timeout))
	}
	r.Use(metrics.LatencyMiddleware(d.Metrics))

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(req.Context()); err != nil {
				d.Logger.WarnContext(req.Context(), "readiness check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	for _, h := range d.Handlers {
		h.Register(r)
	}
	return r
}
