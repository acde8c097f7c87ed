package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow/pkg/adapters/memory"
	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/conversation"
	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/flow"
	"github.com/aretw0/courseflow/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	f, err := flow.New(content.Default())
	require.NoError(t, err)

	notifier := NewNotifier()
	svc := conversation.New(f, session.NewManager(memory.NewStore()), notifier)
	return NewServer(svc, notifier, WithVersion("test"))
}

func TestNotifier_Detached(t *testing.T) {
	err := NewNotifier().Send(context.Background(), "s1", domain.StateSnapshot{})
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestServer_StartGeneratesSessionID(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, SessionArgs{})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	require.NotNil(t, resp.Node)
	assert.Equal(t, domain.NodeInitial, resp.Node.Name)
	require.NotNil(t, resp.State)
	assert.Equal(t, "0/3", resp.State.Progress)
}

func TestServer_TopicRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)

	resp, err := s.handleRecordTopic(ctx, mcp.CallToolRequest{}, TopicArgs{SessionID: "s1", Topic: "Lectures & Schedule"})
	require.NoError(t, err)
	assert.Empty(t, resp.Error)
	assert.Equal(t, domain.NodeQuestions, resp.Node.Name)
	assert.Equal(t, []string{"Lectures & Schedule"}, resp.State.DiscussedTopics)

	resp, err = s.invoker(domain.FuncGoBackToTopics)(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeInitial, resp.Node.Name)
	assert.Empty(t, resp.State.CurrentTopics)

	resp, err = s.handleGetState(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	fn, ok := resp.Node.Function(domain.FuncRecordTopicInterest)
	require.True(t, ok)
	assert.NotContains(t, fn.Description, "Available topics: Lectures & Schedule")
}

func TestServer_RejectionCarriesActiveNode(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)

	resp, err := s.handleRecordTopic(ctx, mcp.CallToolRequest{}, TopicArgs{SessionID: "s1", Topic: "Astrology"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, domain.NodeInitial, resp.Node.Name)
	assert.Empty(t, resp.State.DiscussedTopics)

	resp, err = s.invoker(domain.FuncGoBackToTopics)(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.Contains(t, resp.Error, domain.ErrFunctionNotOffered.Error())
}

func TestServer_ExitThenIgnored(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)

	exit := s.invoker(domain.FuncExitConversation)
	resp, err := exit(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, resp.Error)
	assert.True(t, resp.Node.Ends())

	resp, err = s.handleRecordTopic(ctx, mcp.CallToolRequest{}, TopicArgs{SessionID: "s1", Topic: "Lectures & Schedule"})
	require.NoError(t, err)
	assert.Contains(t, resp.Error, domain.ErrSessionTerminated.Error())
	assert.Equal(t, domain.NodeExit, resp.Node.Name)
}

func TestServer_UnknownSession(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleGetState(context.Background(), mcp.CallToolRequest{}, SessionArgs{SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.invoker(domain.FuncExitConversation)(context.Background(), mcp.CallToolRequest{}, SessionArgs{})
	assert.Error(t, err)
}

func TestServer_Instructions(t *testing.T) {
	s := newTestServer(t)
	text := s.instructions()
	assert.Contains(t, text, "HTI.560 Course Assistant")
	assert.Contains(t, text, "Project Tasks & Deadlines")
}

type fakeClient struct {
	id string
	ch chan mcp.JSONRPCNotification
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id, ch: make(chan mcp.JSONRPCNotification, 8)}
}

func (c *fakeClient) Initialize()                                         {}
func (c *fakeClient) Initialized() bool                                   { return true }
func (c *fakeClient) NotificationChannel() chan<- mcp.JSONRPCNotification { return c.ch }
func (c *fakeClient) SessionID() string                                   { return c.id }

func connect(t *testing.T, s *Server, c *fakeClient) context.Context {
	t.Helper()
	require.NoError(t, s.MCPServer().RegisterSession(context.Background(), c))
	return s.MCPServer().WithContext(context.Background(), c)
}

func TestServer_NotificationsStayWithOwningClient(t *testing.T) {
	s := newTestServer(t)
	x, y := newFakeClient("x"), newFakeClient("y")
	ctxX, ctxY := connect(t, s, x), connect(t, s, y)

	_, err := s.handleStart(ctxX, mcp.CallToolRequest{}, SessionArgs{SessionID: "sx"})
	require.NoError(t, err)
	_, err = s.handleStart(ctxY, mcp.CallToolRequest{}, SessionArgs{SessionID: "sy"})
	require.NoError(t, err)

	_, err = s.handleRecordTopic(ctxX, mcp.CallToolRequest{}, TopicArgs{SessionID: "sx", Topic: "Lectures & Schedule"})
	require.NoError(t, err)

	require.Len(t, x.ch, 1)
	n := <-x.ch
	assert.Equal(t, NotificationMethod, n.Method)
	assert.Equal(t, "sx", n.Params.AdditionalFields["session_id"])
	assert.Empty(t, y.ch)

	// y cannot drive or read a session owned by x.
	_, err = s.handleRecordTopic(ctxY, mcp.CallToolRequest{}, TopicArgs{SessionID: "sx", Topic: "Project Tasks & Deadlines"})
	assert.ErrorIs(t, err, ErrSessionInUse)
	_, err = s.handleStart(ctxY, mcp.CallToolRequest{}, SessionArgs{SessionID: "sx"})
	assert.ErrorIs(t, err, ErrSessionInUse)
	_, err = s.handleGetState(ctxY, mcp.CallToolRequest{}, SessionArgs{SessionID: "sx"})
	assert.ErrorIs(t, err, ErrSessionInUse)

	snap, err := s.svc.Snapshot(context.Background(), "sx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lectures & Schedule"}, snap.DiscussedTopics)
}

func TestNotifier_ReportsMissingClient(t *testing.T) {
	s := newTestServer(t)

	err := s.notifier.Send(context.Background(), "nobody", domain.StateSnapshot{})
	assert.ErrorIs(t, err, server.ErrNotificationNotInitialized)

	s.notifier.owners["gone"] = "closed-client"
	err = s.notifier.Send(context.Background(), "gone", domain.StateSnapshot{})
	assert.ErrorIs(t, err, server.ErrSessionNotFound)
}

func TestServer_DisconnectEndsClientSessions(t *testing.T) {
	s := newTestServer(t)
	x, y := newFakeClient("x"), newFakeClient("y")
	ctxX, ctxY := connect(t, s, x), connect(t, s, y)

	_, err := s.handleStart(ctxX, mcp.CallToolRequest{}, SessionArgs{SessionID: "sx"})
	require.NoError(t, err)
	_, err = s.handleStart(ctxY, mcp.CallToolRequest{}, SessionArgs{SessionID: "sy"})
	require.NoError(t, err)

	s.MCPServer().UnregisterSession(context.Background(), "x")

	_, err = s.svc.Snapshot(context.Background(), "sx")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = s.svc.Snapshot(context.Background(), "sy")
	assert.NoError(t, err)

	// The released id can be started by another client.
	_, err = s.handleStart(ctxY, mcp.CallToolRequest{}, SessionArgs{SessionID: "sx"})
	assert.NoError(t, err)
}
