package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aretw0/courseflow/pkg/domain"
)

const (
	maxMessageBytes = 64 << 10
	writeTimeout    = 5 * time.Second
)

// Websocket message types.
const (
	MsgCall           = "call"
	MsgTurnComplete   = "turn_complete"
	MsgClientReady    = "client_ready"
	MsgNodeActivation = "node_activation"
	MsgError          = "error"
)

// inbound is a message from the websocket client.
type inbound struct {
	Type      string              `json:"type"`
	Name      domain.FunctionName `json:"name,omitempty"`
	Arguments map[string]any      `json:"arguments,omitempty"`
}

// nodeActivation tells the client which node is now active.
type nodeActivation struct {
	Type string              `json:"type"`
	Node domain.DialogueNode `json:"node"`
}

type wsError struct {
	Type  string               `json:"type"`
	Error string               `json:"error"`
	Node  *domain.DialogueNode `json:"node,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWebsocket handles GET /ws?session_id=.
//
// Connecting starts (or restarts) the session and sends the initial node. The
// connection owns the session until it closes: a second connection or a
// POST /sessions for the same id gets 409. The client then sends "call",
// "turn_complete" and "client_ready" messages and receives node activations,
// state updates and errors. State updates caused by a call are written before the
// call's reply. Closing the socket ends the session.
func (s *Server) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if !s.owners.claim(sessionID) {
		s.fail(w, r, fmt.Errorf("session %q: %w", sessionID, ErrSessionInUse), nil)
		return
	}
	defer s.owners.release(sessionID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := s.streams.Subscribe(sessionID)
	replies := make(chan any, s.streams.buffer)
	writerDone := make(chan struct{})
	go s.writeLoop(ctx, conn, updates, replies, writerDone)

	defer func() {
		unsubscribe()
		close(replies)
		<-writerDone
		if err := s.svc.End(context.WithoutCancel(r.Context()), sessionID); err != nil {
			s.logger.Warn("failed to end session", "session_id", sessionID, "err", err)
		}
	}()

	node, err := s.svc.Start(ctx, sessionID)
	if err != nil {
		s.logger.Error("failed to start session", "session_id", sessionID, "err", err)
		return
	}
	s.logger.Info("websocket client connected", "session_id", sessionID)
	replies <- nodeActivation{Type: MsgNodeActivation, Node: node}

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "session_id", sessionID, "err", err)
			}
			return
		}
		if reply := s.handleInbound(ctx, sessionID, msg); reply != nil {
			select {
			case replies <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) handleInbound(ctx context.Context, sessionID string, msg inbound) any {
	switch msg.Type {
	case MsgCall:
		node, err := s.svc.Invoke(ctx, sessionID, domain.FunctionCall{Name: msg.Name, Arguments: msg.Arguments})
		if err != nil {
			reply := wsError{Type: MsgError, Error: err.Error()}
			if node.Name != "" {
				reply.Node = &node
			}
			return reply
		}
		return nodeActivation{Type: MsgNodeActivation, Node: node}
	case MsgTurnComplete:
		if err := s.svc.TurnComplete(ctx, sessionID); err != nil && !errors.Is(err, ErrNoSubscribers) {
			return wsError{Type: MsgError, Error: err.Error()}
		}
	case MsgClientReady:
		if err := s.svc.ClientReady(ctx, sessionID); err != nil && !errors.Is(err, ErrNoSubscribers) {
			return wsError{Type: MsgError, Error: err.Error()}
		}
	default:
		return wsError{Type: MsgError, Error: "unknown message type " + msg.Type}
	}
	return nil
}

// writeLoop is the only writer of conn. The service queues a call's state update
// before the call returns, so draining updates ahead of each reply keeps them in
// order. It returns once replies is closed.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan []byte, replies <-chan any, done chan<- struct{}) {
	defer close(done)

	broken := false
	write := func(msg any) {
		if broken {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("websocket write failed", "err", err)
			broken = true
		}
	}
	drain := func() {
		for {
			select {
			case msg, ok := <-updates:
				if !ok {
					updates = nil
					return
				}
				write(json.RawMessage(msg))
			default:
				return
			}
		}
	}

	for {
		select {
		case msg, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			write(json.RawMessage(msg))
		case reply, ok := <-replies:
			if !ok {
				return
			}
			if updates != nil {
				drain()
			}
			write(reply)
		case <-ctx.Done():
			// keep consuming replies until the handler closes them
			for range replies {
			}
			return
		}
	}
}

// ownerSet tracks the session ids held by live websocket connections.
type ownerSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (o *ownerSet) claim(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, held := o.ids[id]; held {
		return false
	}
	if o.ids == nil {
		o.ids = make(map[string]struct{})
	}
	o.ids[id] = struct{}{}
	return true
}

func (o *ownerSet) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.ids, id)
}

func (o *ownerSet) held(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.ids[id]
	return ok
}
