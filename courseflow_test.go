package courseflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow"
	"github.com/aretw0/courseflow/pkg/broadcast"
	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/domain"
)

func topicCall(topic string) domain.FunctionCall {
	return domain.FunctionCall{
		Name:      domain.FuncRecordTopicInterest,
		Arguments: map[string]any{domain.ArgTopics: []any{topic}},
	}
}

func TestNew_Defaults(t *testing.T) {
	app, err := courseflow.New()
	require.NoError(t, err)

	assert.Nil(t, app.Metrics)
	assert.Equal(t, 3, app.Flow.Catalog().Len())
	assert.Equal(t, "HTI.560 Course Assistant", app.Content.ServiceName())
}

func TestNew_RejectsMissingReference(t *testing.T) {
	c := content.Default()
	c.Questions.Reference = ""

	_, err := courseflow.New(courseflow.WithContent(c))
	assert.ErrorIs(t, err, domain.ErrMissingReference)
}

func TestApp_FullConversation(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []domain.StateSnapshot
	)
	sink := broadcast.SinkFunc(func(_ context.Context, _ string, s domain.StateSnapshot) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, s)
		return nil
	})
	reg := prometheus.NewRegistry()

	app, err := courseflow.New(courseflow.WithSink(sink), courseflow.WithRegisterer(reg))
	require.NoError(t, err)
	svc := app.Service
	ctx := context.Background()

	node, err := svc.Start(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeInitial, node.Name)

	node, err = svc.Invoke(ctx, "s1", topicCall("Project Tasks & Deadlines"))
	require.NoError(t, err)
	assert.Equal(t, domain.NodeQuestions, node.Name)

	node, err = svc.Invoke(ctx, "s1", domain.FunctionCall{Name: domain.FuncGoBackToTopics})
	require.NoError(t, err)
	fn, ok := node.Function(domain.FuncRecordTopicInterest)
	require.True(t, ok)
	assert.NotContains(t, fn.Description, "call with \"Project Tasks & Deadlines\"")

	node, err = svc.Invoke(ctx, "s1", domain.FunctionCall{Name: domain.FuncExitConversation})
	require.NoError(t, err)
	assert.True(t, node.Ends())

	mu.Lock()
	require.Len(t, sent, 2)
	assert.Equal(t, domain.NodeQuestions, sent[0].CurrentNode)
	assert.Equal(t, "1/3", sent[1].Progress)
	assert.Empty(t, sent[1].CurrentTopics)
	mu.Unlock()

	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.Transitions.WithLabelValues(string(domain.FuncExitConversation), string(domain.OutcomeApplied))))
	assert.Equal(t, 2.0, testutil.ToFloat64(app.Metrics.Broadcasts.WithLabelValues(string(domain.OutcomeSent))))
}
