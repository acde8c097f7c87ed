package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/courseflow/pkg/domain"
)

// Metrics holds the Prometheus collectors of the course assistant.
type Metrics struct {
	NodeActivations *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	Broadcasts      *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeActivations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseflow_node_activations_total",
				Help: "Total number of dialogue node activations",
			},
			[]string{"node"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseflow_transitions_total",
				Help: "Total number of function calls by outcome",
			},
			[]string{"function", "outcome"},
		),
		Broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courseflow_broadcasts_total",
				Help: "Total number of state broadcast attempts by outcome",
			},
			[]string{"outcome"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "courseflow_active_sessions",
				Help: "Number of sessions currently started",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.NodeActivations, m.Transitions, m.Broadcasts, m.ActiveSessions)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeActivate: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeActivations.WithLabelValues(string(e.Node)).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.Function), string(e.Outcome)).Inc()
		},
		OnBroadcast: func(_ context.Context, e *domain.BroadcastEvent) {
			m.Broadcasts.WithLabelValues(string(e.Outcome)).Inc()
		},
	}
}
