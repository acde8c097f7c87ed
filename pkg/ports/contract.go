package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	topics := []string{"Lectures", "Projects", "Materials"}

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewSessionState(sessionID, topics)
		state.MarkDiscussed("Projects")
		state.CurrentTopics = []string{"Projects"}
		state.CurrentNode = domain.NodeQuestions

		require.NoError(t, store.Save(ctx, sessionID, state), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.SessionID, loaded.SessionID)
		assert.Equal(t, topics, loaded.AllTopics)
		assert.Equal(t, []string{"Projects"}, loaded.DiscussedTopics)
		assert.Equal(t, []string{"Projects"}, loaded.CurrentTopics)
		assert.Equal(t, domain.NodeQuestions, loaded.CurrentNode)
		assert.Equal(t, domain.TopicResponse{Interested: true}, loaded.Responses["Projects"])
		assert.Equal(t, state.Snapshot(), loaded.Snapshot())
	})

	t.Run("Loaded State Is Detached", func(t *testing.T) {
		state := domain.NewSessionState(sessionID, topics)
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.MarkDiscussed("Lectures")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, loaded.DiscussedTopics, "mutations after Save must not reach the store")

		loaded.MarkDiscussed("Materials")
		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, again.DiscussedTopics, "mutations after Load must not reach the store")
	})

	t.Run("Terminated Survives", func(t *testing.T) {
		state := domain.NewSessionState(sessionID, topics)
		state.Terminated = true
		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, loaded.Terminated)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewSessionState(sessionID, topics)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete of a missing session should succeed")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSessionState(id1, topics))
		_ = store.Save(ctx, id2, domain.NewSessionState(id2, topics))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
