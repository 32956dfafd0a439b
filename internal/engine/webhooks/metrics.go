package webhooks

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Outcome string

const (
	OutcomeSkippedStatus       Outcome = "skipped_status"
	OutcomeSkippedUnconfigured Outcome = "skipped_unconfigured"
	OutcomeSent                Outcome = "sent"
	OutcomeRejected            Outcome = "rejected"
	OutcomeFailed              Outcome = "failed"
)

type Metrics struct {
	dispatches *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics registers the dispatch collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubhook",
			Name:      "dispatch_total",
			Help:      "Save events handled by the dispatcher, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pubhook",
			Name:      "dispatch_duration_seconds",
			Help:      "Latency of outbound dispatch requests.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.dispatches, m.duration)
	}
	return m
}

func (m *Metrics) observe(outcome Outcome) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) observeDuration(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
}
