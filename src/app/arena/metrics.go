package arena

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks engine activity. A nil *Metrics disables collection.
type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	ActionsResolved prometheus.Counter
	ActionsRejected *prometheus.CounterVec
}

// NewMetrics builds and registers the engine collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "engine",
			Name:      "sessions_started_total",
			Help:      "Battle sessions created by pairing",
		}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "engine",
			Name:      "sessions_ended_total",
			Help:      "Battle sessions terminated, by reason",
		}, []string{"reason"}),
		ActionsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "engine",
			Name:      "actions_resolved_total",
			Help:      "Attack actions accepted and applied",
		}),
		ActionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "engine",
			Name:      "actions_rejected_total",
			Help:      "Attack actions rejected, by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.SessionsStarted, m.SessionsEnded, m.ActionsResolved, m.ActionsRejected)
	return m
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

func (m *Metrics) sessionEnded(reason string) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(reason).Inc()
}

func (m *Metrics) actionResolved() {
	if m == nil {
		return
	}
	m.ActionsResolved.Inc()
}

func (m *Metrics) actionRejected(reason string) {
	if m == nil {
		return
	}
	m.ActionsRejected.WithLabelValues(reason).Inc()
}
