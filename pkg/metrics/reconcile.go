package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics tracks cart reconciliation outcomes.
type ReconcileMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	changes  *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_reconcile_duration_seconds",
		Help:    "Duration of cart reconciliation runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_reconcile_total",
		Help: "Cart reconciliation runs, by outcome.",
	}, []string{"outcome"})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_reconcile_changes_total",
		Help: "Cart rows written during reconciliation, by kind.",
	}, []string{"kind"})
	reg.MustRegister(duration, outcomes, changes)
	return &ReconcileMetrics{
		duration: duration,
		outcomes: outcomes,
		changes:  changes,
	}
}

// ObserveRun records one reconciliation run with its outcome label.
func (m *ReconcileMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.outcomes.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddChanges records how many rows of the given kind were written.
func (m *ReconcileMetrics) AddChanges(kind string, count int) {
	if m == nil || m.changes == nil || count <= 0 {
		return
	}
	m.changes.WithLabelValues(normalizeLabel(kind)).Add(float64(count))
}
