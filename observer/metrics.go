package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	modeImmediate = "immediate"
	modeDeferred  = "deferred"
)

// Metrics holds the prometheus collectors fed by observer executions.
type Metrics struct {
	executions *prometheus.CounterVec
	failures   *prometheus.CounterVec
	deferrals  *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg, when not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "golem",
			Subsystem: "observer",
			Name:      "executions_total",
			Help:      "Observer methods executed, by model, method and mode.",
		}, []string{"model", "method", "mode"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "golem",
			Subsystem: "observer",
			Name:      "failures_total",
			Help:      "Observer methods that returned an error.",
		}, []string{"model", "method"}),
		deferrals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "golem",
			Subsystem: "observer",
			Name:      "deferrals_total",
			Help:      "Observer methods scheduled to run after a commit.",
		}, []string{"model", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "golem",
			Subsystem: "observer",
			Name:      "duration_seconds",
			Help:      "Duration of observer method executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.executions, m.failures, m.deferrals, m.duration)
	}
	return m
}

func (m *Metrics) deferral(model string, method Method) {
	if m == nil {
		return
	}
	m.deferrals.WithLabelValues(model, string(method)).Inc()
}

func (m *Metrics) execution(model string, method Method, transactional bool, took time.Duration, err error) {
	if m == nil {
		return
	}
	mode := modeImmediate
	if transactional {
		mode = modeDeferred
	}
	m.executions.WithLabelValues(model, string(method), mode).Inc()
	m.duration.WithLabelValues(string(method)).Observe(took.Seconds())
	if err != nil {
		m.failures.WithLabelValues(model, string(method)).Inc()
	}
}
