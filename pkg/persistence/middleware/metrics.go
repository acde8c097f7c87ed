package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/ports"
)

// Store operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// StoreMetrics times store operations.
type StoreMetrics struct {
	Operations *prometheus.HistogramVec
}

// NewStoreMetrics creates the collectors and registers them with reg (if not nil).
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Operations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courseflow_store_operation_duration_seconds",
				Help:    "Duration of session store operations",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Operations)
	}
	return m
}

type metricsMiddleware struct {
	next    ports.StateStore
	metrics *StoreMetrics
}

// NewMetricsMiddleware records the duration and outcome of every operation.
func NewMetricsMiddleware(m *StoreMetrics) Middleware {
	return func(next ports.StateStore) ports.StateStore {
		return &metricsMiddleware{next: next, metrics: m}
	}
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	m.metrics.Operations.WithLabelValues(op, outcome(err)).Observe(time.Since(start).Seconds())
}

func (m *metricsMiddleware) Save(ctx context.Context, sessionID string, state *domain.SessionState) (err error) {
	defer func(start time.Time) { m.observe("save", start, err) }(time.Now())
	return m.next.Save(ctx, sessionID, state)
}

func (m *metricsMiddleware) Load(ctx context.Context, sessionID string) (state *domain.SessionState, err error) {
	defer func(start time.Time) { m.observe("load", start, err) }(time.Now())
	return m.next.Load(ctx, sessionID)
}

func (m *metricsMiddleware) Delete(ctx context.Context, sessionID string) (err error) {
	defer func(start time.Time) { m.observe("delete", start, err) }(time.Now())
	return m.next.Delete(ctx, sessionID)
}

func (m *metricsMiddleware) List(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { m.observe("list", start, err) }(time.Now())
	return m.next.List(ctx)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrSessionNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}
