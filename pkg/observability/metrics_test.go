package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeActivate(ctx, &domain.NodeEvent{Node: domain.NodeQuestions})
	hooks.OnNodeActivate(ctx, &domain.NodeEvent{Node: domain.NodeQuestions})
	hooks.OnTransition(ctx, &domain.TransitionEvent{Function: domain.FuncGoBackToTopics, Outcome: domain.OutcomeRejected})
	hooks.OnBroadcast(ctx, &domain.BroadcastEvent{Outcome: domain.OutcomeSuppressed})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeActivations.WithLabelValues("questions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("go_back_to_topics", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("suppressed")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCombine(t *testing.T) {
	var order []string
	first := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) { order = append(order, "first") },
	}
	second := domain.LifecycleHooks{
		OnTransition:   func(context.Context, *domain.TransitionEvent) { order = append(order, "second") },
		OnNodeActivate: func(context.Context, *domain.NodeEvent) { order = append(order, "node") },
	}

	hooks := observability.Combine(first, domain.LifecycleHooks{}, second)
	hooks.OnTransition(context.Background(), &domain.TransitionEvent{})
	hooks.OnNodeActivate(context.Background(), &domain.NodeEvent{})

	assert.Equal(t, []string{"first", "second", "node"}, order)
	assert.Nil(t, hooks.OnBroadcast)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.LogHooks(logger).OnTransition(context.Background(), &domain.TransitionEvent{
		EventBase: domain.EventBase{SessionID: "s1"},
		Function:  domain.FuncExitConversation,
		Outcome:   domain.OutcomeApplied,
	})

	assert.Contains(t, buf.String(), "function=exit_conversation")
	assert.Contains(t, buf.String(), "session_id=s1")
}
