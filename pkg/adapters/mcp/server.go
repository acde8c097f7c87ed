// Package mcp exposes the conversation service as an MCP server so that a model
// host can drive the dialogue flow through tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/internal/presentation/graph"
	"github.com/aretw0/courseflow/pkg/catalog"
	"github.com/aretw0/courseflow/pkg/conversation"
	"github.com/aretw0/courseflow/pkg/domain"
)

// NotificationMethod is the MCP notification carrying state snapshots.
const NotificationMethod = "notifications/courseflow/state"

// FlowResourceURI serves the mermaid rendering of the dialogue graph.
const FlowResourceURI = "courseflow://flow"

// TopicsResourceURI serves the topic catalog as JSON.
const TopicsResourceURI = "courseflow://topics"

// ErrNotAttached is returned by a Notifier that has no server yet.
var ErrNotAttached = errors.New("notifier is not attached to a server")

// ErrSessionInUse is returned when a client touches a session another client owns.
var ErrSessionInUse = errors.New("session is held by another client")

// Response is returned by every tool.
type Response struct {
	SessionID string                `json:"session_id" jsonschema_description:"The session the call applied to"`
	Node      *domain.DialogueNode  `json:"node,omitempty" jsonschema_description:"The node now active for the session"`
	State     *domain.StateSnapshot `json:"state,omitempty" jsonschema_description:"Display projection of the session state"`
	Error     string                `json:"error,omitempty" jsonschema_description:"Why the call was rejected, if it was"`
}

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// TopicArgs selects a topic for a session.
type TopicArgs struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
}

// Notifier relays state broadcasts to the MCP client that owns each session.
// Pass it to the conversation service as the sink, then to NewServer.
type Notifier struct {
	mu     sync.RWMutex
	srv    *server.MCPServer
	owners map[string]string // conversation session -> MCP client session
}

// NewNotifier creates a detached Notifier.
func NewNotifier() *Notifier {
	return &Notifier{owners: make(map[string]string)}
}

func (n *Notifier) attach(srv *server.MCPServer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.srv = srv
}

// Send implements broadcast.Sink. The snapshot goes to the owning client only, or
// to the calling client when the session has no owner. An error leaves the
// broadcaster's baseline in place so the change is sent again later.
func (n *Notifier) Send(ctx context.Context, sessionID string, snapshot domain.StateSnapshot) error {
	n.mu.RLock()
	srv, owner := n.srv, n.owners[sessionID]
	n.mu.RUnlock()

	if srv == nil {
		return ErrNotAttached
	}
	params := map[string]any{
		"session_id": sessionID,
		"state":      snapshot,
	}
	var err error
	if owner != "" {
		err = srv.SendNotificationToSpecificClient(owner, NotificationMethod, params)
	} else {
		err = srv.SendNotificationToClient(ctx, NotificationMethod, params)
	}
	if err != nil {
		return fmt.Errorf("notify session %s: %w", sessionID, err)
	}
	return nil
}

// claim makes the calling client the owner of sessionID. Calls without a client
// session leave the session unowned.
func (n *Notifier) claim(ctx context.Context, sessionID string) error {
	client := clientID(ctx)
	n.mu.Lock()
	defer n.mu.Unlock()
	if owner, ok := n.owners[sessionID]; ok && owner != client {
		return fmt.Errorf("session %q: %w", sessionID, ErrSessionInUse)
	}
	if client != "" {
		n.owners[sessionID] = client
	}
	return nil
}

// check fails when sessionID is owned by a client other than the caller.
func (n *Notifier) check(ctx context.Context, sessionID string) error {
	n.mu.RLock()
	owner, ok := n.owners[sessionID]
	n.mu.RUnlock()
	if ok && owner != clientID(ctx) {
		return fmt.Errorf("session %q: %w", sessionID, ErrSessionInUse)
	}
	return nil
}

func (n *Notifier) release(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.owners, sessionID)
}

// releaseClient drops every session owned by client and returns their ids.
func (n *Notifier) releaseClient(client string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []string
	for id, owner := range n.owners {
		if owner == client {
			ids = append(ids, id)
			delete(n.owners, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func clientID(ctx context.Context) string {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		return cs.SessionID()
	}
	return ""
}

// Server wraps the conversation service as an MCP server.
type Server struct {
	svc       *conversation.Service
	logger    *slog.Logger
	version   string
	mcpServer *server.MCPServer
	notifier  *Notifier
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version announced to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a Server. notifier may be nil when state updates are not relayed.
//
// A session belongs to the client that started it: other clients cannot drive it,
// and it ends when its client disconnects.
func NewServer(svc *conversation.Service, notifier *Notifier, opts ...Option) *Server {
	if notifier == nil {
		notifier = NewNotifier()
	}
	s := &Server{
		svc:      svc,
		logger:   logging.NewNop(),
		version:  "dev",
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(s)
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(s.clientGone)

	s.mcpServer = server.NewMCPServer("courseflow-mcp", strings.TrimSpace(s.version),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions(s.instructions()),
	)
	notifier.attach(s.mcpServer)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on the given port using SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instructions() string {
	c := s.svc.Flow().Content()
	return fmt.Sprintf(`%s drives a course-assistant conversation.
Call start_session first, then follow the task instructions of the returned node.
Only call the functions listed in the node's available_functions; exit_conversation
is always accepted. Topics: %s.`, c.Initial.DisplayTitle, strings.Join(s.svc.Flow().Catalog().Names(), ", "))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start (or restart) a session at the topic selection node."),
		mcp.WithString("session_id", mcp.Description("Session identifier; generated when omitted")),
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool(string(domain.FuncRecordTopicInterest),
		mcp.WithDescription(s.svc.Flow().Catalog().DescribeSelection(s.svc.Flow().Catalog().Names())),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("topic", mcp.Required(),
			mcp.Description(catalog.DescribeTopicsArgument(s.svc.Flow().Catalog().Names())),
			mcp.Enum(s.svc.Flow().Catalog().Names()...),
		),
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleRecordTopic))

	s.mcpServer.AddTool(mcp.NewTool(string(domain.FuncGoBackToTopics),
		mcp.WithDescription("Return to the topic selection when the user wants another topic."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.invoker(domain.FuncGoBackToTopics)))

	s.mcpServer.AddTool(mcp.NewTool(string(domain.FuncExitConversation),
		mcp.WithDescription("End the conversation when the user says goodbye."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.invoker(domain.FuncExitConversation)))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Return the active node and state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Discard a session and its state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("session_id", "")
		if id == "" {
			return mcp.NewToolResultError("session_id is required"), nil
		}
		if err := s.notifier.check(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.svc.End(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("end failed: %v", err)), nil
		}
		s.notifier.release(id)
		return mcp.NewToolResultText(fmt.Sprintf("session %s ended", id)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (Response, error) {
	id := args.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	if err := s.notifier.claim(ctx, id); err != nil {
		return Response{}, err
	}
	node, err := s.svc.Start(ctx, id)
	if err != nil {
		return Response{}, fmt.Errorf("start failed: %w", err)
	}
	return s.respond(ctx, id, node, nil), nil
}

func (s *Server) handleRecordTopic(ctx context.Context, _ mcp.CallToolRequest, args TopicArgs) (Response, error) {
	if args.SessionID == "" {
		return Response{}, errors.New("session_id is required")
	}
	call := domain.FunctionCall{
		Name:      domain.FuncRecordTopicInterest,
		Arguments: map[string]any{domain.ArgTopics: []any{args.Topic}},
	}
	return s.invoke(ctx, args.SessionID, call)
}

func (s *Server) invoker(name domain.FunctionName) func(context.Context, mcp.CallToolRequest, SessionArgs) (Response, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (Response, error) {
		if args.SessionID == "" {
			return Response{}, errors.New("session_id is required")
		}
		return s.invoke(ctx, args.SessionID, domain.FunctionCall{Name: name})
	}
}

func (s *Server) invoke(ctx context.Context, id string, call domain.FunctionCall) (Response, error) {
	if err := s.notifier.check(ctx, id); err != nil {
		return Response{}, err
	}
	node, err := s.svc.Invoke(ctx, id, call)
	switch {
	case err == nil:
		return s.respond(ctx, id, node, nil), nil
	case isRejection(err):
		s.logger.Warn("MCP call rejected", "session_id", id, "function", call.Name, "err", err)
		return s.respond(ctx, id, node, err), nil
	default:
		return Response{}, fmt.Errorf("%s failed: %w", call.Name, err)
	}
}

func (s *Server) handleGetState(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (Response, error) {
	if args.SessionID == "" {
		return Response{}, errors.New("session_id is required")
	}
	if err := s.notifier.check(ctx, args.SessionID); err != nil {
		return Response{}, err
	}
	node, err := s.svc.ActiveNode(ctx, args.SessionID)
	if err != nil {
		return Response{}, fmt.Errorf("get state failed: %w", err)
	}
	return s.respond(ctx, args.SessionID, node, nil), nil
}

func (s *Server) respond(ctx context.Context, id string, node domain.DialogueNode, rejected error) Response {
	resp := Response{SessionID: id, Node: &node}
	if rejected != nil {
		resp.Error = rejected.Error()
	}
	if snap, err := s.svc.Snapshot(ctx, id); err == nil {
		resp.State = &snap
	} else {
		s.logger.Debug("MCP snapshot unavailable", "session_id", id, "err", err)
	}
	return resp
}

// clientGone ends the sessions of a disconnected client.
func (s *Server) clientGone(ctx context.Context, client server.ClientSession) {
	for _, id := range s.notifier.releaseClient(client.SessionID()) {
		if err := s.svc.End(context.WithoutCancel(ctx), id); err != nil {
			s.logger.Warn("failed to end session of disconnected client", "session_id", id, "err", err)
			continue
		}
		s.logger.Info("MCP client disconnected, session ended", "session_id", id)
	}
}

// isRejection reports errors the model can recover from by following the returned node.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrUnknownFunction) ||
		errors.Is(err, domain.ErrFunctionNotOffered) ||
		errors.Is(err, domain.ErrInvalidArguments) ||
		errors.Is(err, domain.ErrSessionTerminated)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowResourceURI, "Dialogue Flow",
		mcp.WithResourceDescription("Mermaid diagram of the dialogue nodes and transitions"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FlowResourceURI,
				MIMEType: "text/plain",
				Text:     graph.Flow(nil),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(TopicsResourceURI, "Course Topics",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.svc.Flow().Catalog().Topics())
		if err != nil {
			return nil, fmt.Errorf("failed to encode topics: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TopicsResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
