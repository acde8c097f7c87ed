package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow/pkg/adapters/memory"
	"github.com/aretw0/courseflow/pkg/catalog"
	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/conversation"
	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/flow"
	"github.com/aretw0/courseflow/pkg/ports"
	"github.com/aretw0/courseflow/pkg/session"
)

type sink struct {
	mu   sync.Mutex
	sent []domain.StateSnapshot
}

func (s *sink) Send(_ context.Context, _ string, snapshot domain.StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, snapshot)
	return nil
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *sink) last() domain.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

type failingSaves struct {
	ports.StateStore
	fail bool
}

func (f *failingSaves) Save(ctx context.Context, id string, state *domain.SessionState) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.StateStore.Save(ctx, id, state)
}

func newService(t *testing.T, store ports.StateStore, opts ...conversation.Option) (*conversation.Service, *sink) {
	t.Helper()
	c := &content.Content{
		Topics:    []catalog.Topic{{Name: "A"}, {Name: "B"}},
		Initial:   content.InitialNode{Task: "Greet."},
		Questions: content.QuestionsNode{Role: "Answer.", Task: "Be short.", Reference: "Reference."},
		Exit:      content.ExitNode{Task: "Bye."},
	}
	f, err := flow.New(c)
	require.NoError(t, err)
	out := &sink{}
	return conversation.New(f, session.NewManager(store), out, opts...), out
}

func selectTopic(topic string) domain.FunctionCall {
	return domain.FunctionCall{
		Name:      domain.FuncRecordTopicInterest,
		Arguments: map[string]any{domain.ArgTopics: []any{topic}},
	}
}

func TestService_Conversation(t *testing.T) {
	svc, out := newService(t, memory.NewStore())
	ctx := context.Background()

	node, err := svc.Start(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeInitial, node.Name)
	assert.Equal(t, 0, out.count())

	require.NoError(t, svc.ClientReady(ctx, "s1"))
	require.Equal(t, 1, out.count())
	assert.Equal(t, "0/2", out.last().Progress)

	node, err = svc.Invoke(ctx, "s1", selectTopic("A"))
	require.NoError(t, err)
	assert.Equal(t, domain.NodeQuestions, node.Name)
	require.Equal(t, 2, out.count())
	assert.Equal(t, []string{"A"}, out.last().CurrentTopics)

	require.NoError(t, svc.TurnComplete(ctx, "s1"))
	assert.Equal(t, 2, out.count(), "unchanged state must not be re-sent")

	node, err = svc.Invoke(ctx, "s1", domain.FunctionCall{Name: domain.FuncGoBackToTopics})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeInitial, node.Name)
	assert.Equal(t, 3, out.count())

	active, err := svc.ActiveNode(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeInitial, active.Name)

	snap, err := svc.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, snap.RemainingTopics)
}

func TestService_Resume(t *testing.T) {
	svc, _ := newService(t, memory.NewStore())
	ctx := context.Background()

	node, resumed, err := svc.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, domain.NodeInitial, node.Name)

	_, err = svc.Invoke(ctx, "s1", selectTopic("A"))
	require.NoError(t, err)

	node, resumed, err = svc.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, domain.NodeQuestions, node.Name)

	snap, err := svc.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, snap.DiscussedTopics, "resume keeps progress")

	_, _, err = svc.Resume(ctx, "")
	assert.Error(t, err)
}

func TestService_ResumeCountsAsActive(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	before, _ := newService(t, store)
	_, err := before.Start(ctx, "s1")
	require.NoError(t, err)

	var active []int
	svc, _ := newService(t, store, conversation.WithSessionGauge(func(n int) {
		active = append(active, n)
	}))
	_, resumed, err := svc.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, 1, svc.ActiveSessions())

	_, _, err = svc.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.ActiveSessions())

	require.NoError(t, svc.End(ctx, "s1"))
	assert.Equal(t, []int{1, 0}, active)
}

func TestService_RejectedCallKeepsNode(t *testing.T) {
	svc, out := newService(t, memory.NewStore())
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1")
	require.NoError(t, err)

	node, err := svc.Invoke(ctx, "s1", selectTopic("nope"))
	assert.ErrorIs(t, err, domain.ErrInvalidArguments)
	assert.Equal(t, domain.NodeInitial, node.Name)
	assert.Equal(t, 0, out.count())

	state, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, state.DiscussedTopics)
}

func TestService_ExitThenIgnore(t *testing.T) {
	svc, out := newService(t, memory.NewStore())
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1")
	require.NoError(t, err)

	node, err := svc.Invoke(ctx, "s1", domain.FunctionCall{Name: domain.FuncExitConversation})
	require.NoError(t, err)
	assert.True(t, node.Ends())

	node, err = svc.Invoke(ctx, "s1", selectTopic("A"))
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
	assert.Equal(t, domain.NodeExit, node.Name)
	assert.Equal(t, 0, out.count())

	node, err = svc.Start(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeInitial, node.Name, "restart resets the session")
}

func TestService_SaveFailureSuppressesBroadcast(t *testing.T) {
	store := &failingSaves{StateStore: memory.NewStore()}
	svc, out := newService(t, store)
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1")
	require.NoError(t, err)

	store.fail = true
	_, err = svc.Invoke(ctx, "s1", selectTopic("A"))
	assert.Error(t, err)
	assert.Equal(t, 0, out.count())

	store.fail = false
	state, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, state.DiscussedTopics)
}

func TestService_EndAndGauge(t *testing.T) {
	var active []int
	svc, _ := newService(t, memory.NewStore(), conversation.WithSessionGauge(func(n int) {
		active = append(active, n)
	}))
	ctx := context.Background()

	_, err := svc.Start(ctx, "s1")
	require.NoError(t, err)
	_, err = svc.Start(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.ActiveSessions())

	ids, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)

	require.NoError(t, svc.End(ctx, "s1"))
	assert.Equal(t, 1, svc.ActiveSessions())
	assert.Equal(t, []int{1, 2, 1}, active)

	_, err = svc.Invoke(ctx, "s1", selectTopic("A"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestService_StartRequiresID(t *testing.T) {
	svc, _ := newService(t, memory.NewStore())
	_, err := svc.Start(context.Background(), "")
	assert.Error(t, err)
}
