package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow/pkg/domain"
)

type captureSink struct {
	sent []domain.StateSnapshot
	err  error
}

func (s *captureSink) Send(_ context.Context, _ string, snapshot domain.StateSnapshot) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, snapshot)
	return nil
}

func TestBroadcaster_SuppressesDuplicates(t *testing.T) {
	sink := &captureSink{}
	b := New("s1", sink)
	state := domain.NewSessionState("s1", []string{"A", "B"})
	ctx := context.Background()

	sent, err := b.Send(ctx, state)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = b.Send(ctx, state)
	require.NoError(t, err)
	assert.False(t, sent)

	state.MarkDiscussed("A")
	sent, err = b.Send(ctx, state)
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, sink.sent, 2)
	assert.Equal(t, domain.MessageTypeStateUpdate, sink.sent[0].Type)
	assert.Equal(t, []string{"A", "B"}, sink.sent[0].RemainingTopics)
	assert.Equal(t, []string{"A"}, sink.sent[1].DiscussedTopics)
}

func TestBroadcaster_SnapshotIsDetached(t *testing.T) {
	sink := &captureSink{}
	b := New("s1", sink)
	state := domain.NewSessionState("s1", []string{"A", "B"})

	_, err := b.Send(context.Background(), state)
	require.NoError(t, err)

	state.DiscussedTopics = append(state.DiscussedTopics, "A")
	state.Responses["A"] = domain.TopicResponse{Interested: true}

	last, ok := b.Last()
	require.True(t, ok)
	assert.Empty(t, last.DiscussedTopics)
	assert.Empty(t, last.Responses)

	sent, err := b.Send(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, sent, "mutating the state after a send must not hide the change")
}

func TestBroadcaster_FailureKeepsBaseline(t *testing.T) {
	sink := &captureSink{err: errors.New("connection closed")}
	var outcomes []domain.TransitionOutcome
	b := New("s1", sink, WithLifecycleHooks(domain.LifecycleHooks{
		OnBroadcast: func(_ context.Context, e *domain.BroadcastEvent) {
			outcomes = append(outcomes, e.Outcome)
		},
	}))
	state := domain.NewSessionState("s1", []string{"A"})
	ctx := context.Background()

	b.SendStateUpdate(ctx, state)
	_, ok := b.Last()
	assert.False(t, ok)

	sink.err = nil
	sent, err := b.Send(ctx, state)
	require.NoError(t, err)
	assert.True(t, sent)

	b.SendStateUpdate(ctx, state)

	assert.Equal(t, []domain.TransitionOutcome{
		domain.OutcomeFailed, domain.OutcomeSent, domain.OutcomeSuppressed,
	}, outcomes)
}

func TestBroadcaster_Reset(t *testing.T) {
	sink := &captureSink{}
	b := New("s1", sink)
	state := domain.NewSessionState("s1", []string{"A"})
	ctx := context.Background()

	b.SendStateUpdate(ctx, state)
	b.Reset()
	b.SendStateUpdate(ctx, state)

	assert.Len(t, sink.sent, 2)
}
