package middleware_test

import (
	"context"
	"sort"

	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/ports"
)

// MockStore is a map-based store that can be told to fail.
type MockStore struct {
	data map[string]*domain.SessionState
	err  error
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.SessionState)}
}

func (s *MockStore) Save(_ context.Context, sessionID string, state *domain.SessionState) error {
	if s.err != nil {
		return s.err
	}
	s.data[sessionID] = state
	return nil
}

func (s *MockStore) Load(_ context.Context, sessionID string) (*domain.SessionState, error) {
	if s.err != nil {
		return nil, s.err
	}
	state, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state, nil
}

func (s *MockStore) Delete(_ context.Context, sessionID string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.data, sessionID)
	return nil
}

func (s *MockStore) List(_ context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ ports.StateStore = (*MockStore)(nil)
