package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the cargo module.
type Metrics struct {
	LoadsCreated      prometheus.Counter
	ManifestStrips    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoadsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "marina_loads_created_total",
			Help: "Total number of loads created",
		}),
		ManifestStrips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marina_manifest_strips_total",
			Help: "Manifest entries removed because their load was deleted, by outcome (ok, error, orphaned)",
		}, []string{"outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marina_cargo_operation_duration_seconds",
			Help:    "Duration of cargo manager operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
	}
}

func (m *Metrics) IncrementLoadsCreated() {
	m.LoadsCreated.Inc()
}

func (m *Metrics) IncrementManifestStrip(outcome string) {
	m.ManifestStrips.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOperation(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
