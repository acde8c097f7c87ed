package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/pkg/domain"
)

// ErrNoSubscribers is returned by Send when no display is attached to the session.
var ErrNoSubscribers = errors.New("no display connected")

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// StreamManager fans state updates out to the display clients of each session.
// SSE and websocket clients subscribe to the same manager, which is also the
// broadcast.Sink of the conversation service.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{}
	buffer      int
	logger      *slog.Logger
}

// StreamOption configures a StreamManager.
type StreamOption func(*StreamManager)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) StreamOption {
	return func(sm *StreamManager) {
		if n > 0 {
			sm.buffer = n
		}
	}
}

// WithStreamLogger sets the logger.
func WithStreamLogger(logger *slog.Logger) StreamOption {
	return func(sm *StreamManager) {
		sm.logger = logger
	}
}

func NewStreamManager(opts ...StreamOption) *StreamManager {
	sm := &StreamManager{
		subscribers: make(map[string]map[chan []byte]struct{}),
		buffer:      DefaultBuffer,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Subscribe registers a display for sessionID. The returned func unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, sm.buffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Subscribers returns the number of displays attached to sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast queues msg for every subscriber of sessionID and returns how many
// accepted it. Subscribers with a full queue are skipped.
func (sm *StreamManager) Broadcast(sessionID string, msg []byte) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	delivered := 0
	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
			delivered++
		default:
			sm.logger.Warn("display buffer full, dropping message", "session_id", sessionID)
		}
	}
	return delivered
}

// Send implements broadcast.Sink. It fails when no subscriber received the
// snapshot, so the broadcaster retries it later.
func (sm *StreamManager) Send(ctx context.Context, sessionID string, snapshot domain.StateSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if sm.Broadcast(sessionID, data) == 0 {
		return ErrNoSubscribers
	}
	return nil
}
