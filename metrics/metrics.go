// Package metrics holds the Prometheus collectors of the wiki engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wiki"

// Edit outcomes.
const (
	OutcomeSaved    = "saved"
	OutcomeCreated  = "created"
	OutcomeReverted = "reverted"
	OutcomeLockLost = "lock_lost"
	OutcomeInvalid  = "invalid"
	OutcomeDenied   = "denied"
	OutcomeError    = "error"
)

// Lease acquisition results.
const (
	LeaseGranted   = "granted"
	LeaseReentered = "reentered"
	LeaseContended = "contended"
	LeaseError     = "error"
)

type Metrics struct {
	edits        *prometheus.CounterVec
	editDuration prometheus.Histogram
	leases       *prometheus.CounterVec
	autolocked   prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		edits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Edit submissions by outcome.",
		}, []string{"outcome"}),
		editDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edit_duration_seconds",
			Help:      "Time spent committing an edit or revert.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		leases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lease_acquisitions_total",
			Help:      "Write lease acquisition attempts by result.",
		}, []string{"result"}),
		autolocked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autolocked_articles_total",
			Help:      "Articles locked by the autolock job.",
		}),
	}
}

func (m *Metrics) ObserveEdit(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(outcome).Inc()
	m.editDuration.Observe(took.Seconds())
}

func (m *Metrics) LeaseAttempt(result string) {
	if m == nil {
		return
	}
	m.leases.WithLabelValues(result).Inc()
}

func (m *Metrics) Autolocked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.autolocked.Add(float64(n))
}
