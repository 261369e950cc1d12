package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the vessel module.
// Tracks creations, relationship writes and operation durations.
type Metrics struct {
	VesselsCreated     prometheus.Counter
	RelationshipWrites *prometheus.CounterVec
	CarrierRepairs     *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// New creates the vessel metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VesselsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "marina_vessels_created_total",
			Help: "Total number of vessels created",
		}),
		RelationshipWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marina_relationship_writes_total",
			Help: "Manifest/carrier writes by operation (assign, unassign) and outcome",
		}, []string{"op", "outcome"}),
		CarrierRepairs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marina_carrier_repairs_total",
			Help: "Cargo carrier fields cleared after a vessel delete, by outcome",
		}, []string{"outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marina_vessel_operation_duration_seconds",
			Help:    "Duration of vessel manager operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
	}
}

func (m *Metrics) IncrementVesselsCreated() {
	m.VesselsCreated.Inc()
}

// IncrementRelationshipWrite records a completed or failed assign/unassign.
func (m *Metrics) IncrementRelationshipWrite(op string, err error) {
	m.RelationshipWrites.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) IncrementCarrierRepair(err error) {
	m.CarrierRepairs.WithLabelValues(outcome(err)).Inc()
}

// ObserveOperation records the duration of op.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
