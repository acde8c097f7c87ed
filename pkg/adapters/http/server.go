// Package http exposes the conversation service over HTTP: a JSON API for the
// dialogue engine, server-sent events and a websocket for the display client.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/internal/presentation/graph"
	"github.com/aretw0/courseflow/pkg/conversation"
	"github.com/aretw0/courseflow/pkg/domain"
)

// ErrSessionInUse is returned when a session is held by a live websocket connection.
var ErrSessionInUse = errors.New("session is held by another connection")

// Info describes the deployment on GET /info.
type Info struct {
	App      string   `json:"app"`
	Version  string   `json:"version"`
	Title    string   `json:"title"`
	Greeting string   `json:"greeting"`
	Topics   []string `json:"topics"`
}

// Server serves the HTTP API.
type Server struct {
	svc     *conversation.Service
	streams *StreamManager
	logger  *slog.Logger
	version string
	metrics http.Handler
	owners  ownerSet

	keepAlive time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported on /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithKeepAlive sets the SSE ping interval.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		s.keepAlive = d
	}
}

// NewServer creates a Server. streams must be the sink the service broadcasts to.
func NewServer(svc *conversation.Service, streams *StreamManager, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		streams:   streams,
		logger:    logging.NewNop(),
		version:   "dev",
		keepAlive: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Get("/ws", s.ServeWebsocket)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.EndSession)
			r.Post("/calls", s.InvokeFunction)
			r.Post("/turns", s.TurnComplete)
			r.Post("/ready", s.ClientReady)
			r.Get("/state", s.GetState)
			r.Get("/node", s.GetNode)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type startRequest struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	SessionID string              `json:"session_id"`
	Node      domain.DialogueNode `json:"node"`
}

type errorResponse struct {
	Error string               `json:"error"`
	Node  *domain.DialogueNode `json:"node,omitempty"`
}

// StartSession handles POST /sessions. An omitted session_id is generated. A
// session held by a websocket connection cannot be restarted.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}
	if s.owners.held(body.SessionID) {
		s.fail(w, r, fmt.Errorf("session %q: %w", body.SessionID, ErrSessionInUse), nil)
		return
	}

	node, err := s.svc.Start(r.Context(), body.SessionID)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse{SessionID: body.SessionID, Node: node})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.List(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// InvokeFunction handles POST /sessions/{id}/calls.
func (s *Server) InvokeFunction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var call domain.FunctionCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	node, err := s.svc.Invoke(r.Context(), sessionID, call)
	if err != nil {
		s.fail(w, r, err, &node)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{SessionID: sessionID, Node: node})
}

// TurnComplete handles POST /sessions/{id}/turns.
func (s *Server) TurnComplete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.TurnComplete(r.Context(), chi.URLParam(r, "sessionID")); err != nil && !errors.Is(err, ErrNoSubscribers) {
		s.fail(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClientReady handles POST /sessions/{id}/ready.
func (s *Server) ClientReady(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClientReady(r.Context(), chi.URLParam(r, "sessionID")); err != nil && !errors.Is(err, ErrNoSubscribers) {
		s.fail(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetState handles GET /sessions/{id}/state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// GetNode handles GET /sessions/{id}/node.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.svc.ActiveNode(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

// EndSession handles DELETE /sessions/{id}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if s.owners.held(sessionID) {
		s.fail(w, r, fmt.Errorf("session %q: %w", sessionID, ErrSessionInUse), nil)
		return
	}
	if err := s.svc.End(r.Context(), sessionID); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /graph. ?session_id= overlays that session's progress.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		state, err := s.svc.State(r.Context(), id)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		overlay = graph.OverlayFor(state)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.Flow(overlay)))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.svc.Flow().Content().ServiceName(),
	})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	c := s.svc.Flow().Content()
	s.writeJSON(w, http.StatusOK, Info{
		App:      "courseflow-http",
		Version:  s.version,
		Title:    c.ServiceName(),
		Greeting: c.Initial.Greeting,
		Topics:   s.svc.Flow().Catalog().Names(),
	})
}

// fail maps service errors to status codes. node, when set, is echoed so the
// caller can keep driving the active node after a rejected call.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, node *domain.DialogueNode) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	if node != nil && node.Name == "" {
		node = nil
	}
	s.writeError(w, status, err.Error(), node)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionTerminated),
		errors.Is(err, ErrSessionInUse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownFunction),
		errors.Is(err, domain.ErrFunctionNotOffered),
		errors.Is(err, domain.ErrInvalidArguments):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, node *domain.DialogueNode) {
	s.writeJSON(w, status, errorResponse{Error: msg, Node: node})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
