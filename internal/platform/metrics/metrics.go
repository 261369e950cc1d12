package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics holds the platform-wide Prometheus metrics: HTTP latency and entity
// store operation latency.
type Metrics struct {
	HTTPDuration  *prometheus.HistogramVec
	StoreDuration *prometheus.HistogramVec
	StoreErrors   *prometheus.CounterVec
}

// New creates and registers the platform metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marina_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: latencyBuckets,
		}, []string{"route", "method", "status"}),
		StoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marina_store_operation_duration_seconds",
			Help:    "Entity store operation latency by backend and operation",
			Buckets: latencyBuckets,
		}, []string{"backend", "op"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marina_store_operation_errors_total",
			Help: "Entity store operations that returned an error (not-found excluded)",
		}, []string{"backend", "op"}),
	}
}

// ObserveStore records one store operation. Safe on a nil receiver.
func (m *Metrics) ObserveStore(backend, op string, start time.Time, failed bool) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if failed {
		m.StoreErrors.WithLabelValues(backend, op).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LatencyMiddleware observes request latency labelled by chi route pattern.
func LatencyMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.HTTPDuration.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}
