package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow"
	"github.com/aretw0/courseflow/pkg/domain"
)

func runConsole(t *testing.T, app *courseflow.App, out *bytes.Buffer, input string, opts ...ConsoleOption) {
	t.Helper()
	console := NewConsole(app.Service, strings.NewReader(input), out, opts...)
	require.NoError(t, console.Run(context.Background()))
}

func newConsoleApp(t *testing.T, out *bytes.Buffer) *courseflow.App {
	t.Helper()
	app, err := courseflow.New(courseflow.WithSink(DisplaySink(out)))
	require.NoError(t, err)
	return app
}

func TestConsole_Conversation(t *testing.T) {
	var out bytes.Buffer
	app := newConsoleApp(t, &out)

	runConsole(t, app, &out, strings.Join([]string{
		"what are the deadlines?",
		"/topic 2",
		"/back",
		"/topic course materials & readings",
		"/state",
		"/exit",
		"/topic 1",
	}, "\n"))

	text := out.String()
	assert.Contains(t, text, "## initial")
	assert.Contains(t, text, "## questions")
	assert.Contains(t, text, ">>> [display] 1/3 discussed, now: Project Tasks & Deadlines")
	assert.Contains(t, text, ">>> [display] 2/3 discussed, now: Course Materials & Readings")
	assert.Contains(t, text, "2. [x] Project Tasks & Deadlines")
	assert.Contains(t, text, "_Conversation ends._")

	state, err := app.Service.State(context.Background(), "console")
	require.NoError(t, err)
	assert.True(t, state.Terminated)
	assert.Equal(t, []string{"Project Tasks & Deadlines", "Course Materials & Readings"}, state.DiscussedTopics)
}

func TestConsole_RejectionsKeepNode(t *testing.T) {
	var out bytes.Buffer
	app := newConsoleApp(t, &out)

	runConsole(t, app, &out, "/back\n/topic Astrology\n/topic\n/dance\n/quit\n")

	text := out.String()
	assert.Contains(t, text, domain.ErrFunctionNotOffered.Error())
	assert.Contains(t, text, domain.ErrInvalidArguments.Error())
	assert.Contains(t, text, "usage: /topic")
	assert.Contains(t, text, "unknown command /dance")

	snap, err := app.Service.Snapshot(context.Background(), "console")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeInitial, snap.CurrentNode)
	assert.Empty(t, snap.DiscussedTopics)
}

func TestConsole_Resume(t *testing.T) {
	var out bytes.Buffer
	app := newConsoleApp(t, &out)

	runConsole(t, app, &out, "/topic 1\n/quit\n", WithSessionID("s1"))
	out.Reset()

	runConsole(t, app, &out, "/state\n", WithSessionID("s1"), WithResume(true))

	text := out.String()
	assert.Contains(t, text, "Resuming session 's1'")
	assert.Contains(t, text, "## questions")
	assert.Contains(t, text, "1/3")
}

func TestConsole_ResumeUnknownStarts(t *testing.T) {
	var out bytes.Buffer
	app := newConsoleApp(t, &out)

	runConsole(t, app, &out, "/quit\n", WithSessionID("fresh"), WithResume(true))

	assert.NotContains(t, out.String(), "Resuming")
	assert.Contains(t, out.String(), "## initial")
}

func TestConsole_Graph(t *testing.T) {
	var out bytes.Buffer
	app := newConsoleApp(t, &out)

	runConsole(t, app, &out, "/graph\n")
	assert.Contains(t, out.String(), "graph TD")
}

func TestConsole_CancelledContext(t *testing.T) {
	var out bytes.Buffer
	app := newConsoleApp(t, &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	console := NewConsole(app.Service, strings.NewReader("/topic 1\n"), &out)
	assert.NoError(t, console.Run(ctx))
}
