package docqa

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for executor activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attemptsTotal *prometheus.CounterVec
	outcomesTotal *prometheus.CounterVec
	backoff       prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docqa",
				Subsystem: "client",
				Name:      "attempts_total",
				Help:      "Transport calls by what the executor decided next.",
			},
			[]string{"next"},
		),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docqa",
				Subsystem: "client",
				Name:      "outcomes_total",
				Help:      "Resolved requests by failure kind; successes use kind=\"success\".",
			},
			[]string{"kind"},
		),
		backoff: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "docqa",
				Subsystem: "client",
				Name:      "backoff_seconds",
				Help:      "Backoff delays inserted between attempts.",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 16},
			},
		),
	}

	for _, c := range []prometheus.Collector{m.attemptsTotal, m.outcomesTotal, m.backoff} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register docqa metrics: %w", err)
		}
	}
	return m, nil
}

// AttemptsTotal exposes the attempts counter, labelled by the next state.
func (m *Metrics) AttemptsTotal() *prometheus.CounterVec {
	return m.attemptsTotal
}

// OutcomesTotal exposes the outcomes counter, labelled by kind.
func (m *Metrics) OutcomesTotal() *prometheus.CounterVec {
	return m.outcomesTotal
}

func (m *Metrics) observeAttempt(t Transition) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(t.Next.String()).Inc()
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	kind := "success"
	if f := o.Failure(); f != nil {
		kind = string(f.Kind)
	}
	m.outcomesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeBackoff(d time.Duration) {
	if m == nil {
		return
	}
	m.backoff.Observe(d.Seconds())
}
