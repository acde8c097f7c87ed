package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/internal/presentation/graph"
	"github.com/aretw0/courseflow/internal/presentation/tui"
	"github.com/aretw0/courseflow/pkg/broadcast"
	"github.com/aretw0/courseflow/pkg/conversation"
	"github.com/aretw0/courseflow/pkg/domain"
)

const consoleHelp = `Commands:
  /topic <n|name>  record interest in a topic (number from /state)
  /back            return to the topic selection
  /exit            end the conversation
  /state           show the discussed topics
  /graph           show the dialogue graph
  /quit            leave without ending the conversation
Any other line counts as a spoken turn.`

// Console plays the intent-matching layer in a terminal: slash commands become
// function calls on the conversation service.
type Console struct {
	svc       *conversation.Service
	in        io.Reader
	out       io.Writer
	render    func(string) (string, error)
	sessionID string
	resume    bool
	logger    *slog.Logger
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithRenderer renders markdown before printing, e.g. tui.NewRenderer.
func WithRenderer(render func(string) (string, error)) ConsoleOption {
	return func(c *Console) {
		c.render = render
	}
}

// WithSessionID sets the session driven by the console (default "console").
func WithSessionID(id string) ConsoleOption {
	return func(c *Console) {
		c.sessionID = id
	}
}

// WithResume continues a stored session instead of starting over.
func WithResume(resume bool) ConsoleOption {
	return func(c *Console) {
		c.resume = resume
	}
}

// WithConsoleLogger sets the logger.
func WithConsoleLogger(logger *slog.Logger) ConsoleOption {
	return func(c *Console) {
		c.logger = logger
	}
}

// NewConsole creates a Console reading commands from in and writing to out.
func NewConsole(svc *conversation.Service, in io.Reader, out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		svc:       svc,
		in:        in,
		out:       out,
		render:    func(s string) (string, error) { return s, nil },
		sessionID: "console",
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DisplaySink prints every state broadcast as a one-line display update.
func DisplaySink(w io.Writer) broadcast.Sink {
	return broadcast.SinkFunc(func(_ context.Context, _ string, s domain.StateSnapshot) error {
		current := "-"
		if len(s.CurrentTopics) > 0 {
			current = strings.Join(s.CurrentTopics, ", ")
		}
		_, err := fmt.Fprintf(w, ">>> [display] %s discussed, now: %s\n", s.Progress, current)
		return err
	})
}

// Run drives the session until it ends, the input is exhausted or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	node, err := c.open(ctx)
	if err != nil {
		return err
	}
	c.show(node)
	if node.Ends() {
		return nil
	}

	lines := c.pump(ctx)
	for {
		fmt.Fprint(c.out, "> ")

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok = <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return nil
			}
		}

		clean, err := SanitizeInput(line)
		if err != nil {
			fmt.Fprintf(c.out, ">>> %v\n", err)
			continue
		}
		done, err := c.handle(ctx, strings.TrimSpace(clean))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (c *Console) open(ctx context.Context) (domain.DialogueNode, error) {
	if !c.resume {
		return c.svc.Start(ctx, c.sessionID)
	}
	node, resumed, err := c.svc.Resume(ctx, c.sessionID)
	if err != nil {
		return domain.DialogueNode{}, err
	}
	if resumed {
		fmt.Fprintf(c.out, ">>> Resuming session '%s'.\n", c.sessionID)
	}
	return node, nil
}

// pump reads lines in the background so a blocked read never holds up cancellation.
func (c *Console) pump(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (c *Console) handle(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false, nil
	case "/help":
		fmt.Fprintln(c.out, consoleHelp)
		return false, nil
	case "/quit":
		return true, nil
	case "/state":
		snap, err := c.svc.Snapshot(ctx, c.sessionID)
		if err != nil {
			return false, err
		}
		c.print(tui.StateMarkdown(snap))
		return false, nil
	case "/graph":
		state, err := c.svc.State(ctx, c.sessionID)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, graph.Flow(graph.OverlayFor(state)))
		return false, nil
	case "/topic":
		if arg == "" {
			fmt.Fprintln(c.out, ">>> usage: /topic <n|name>")
			return false, nil
		}
		topic, err := c.resolveTopic(ctx, arg)
		if err != nil {
			return false, err
		}
		return c.invoke(ctx, domain.FunctionCall{
			Name:      domain.FuncRecordTopicInterest,
			Arguments: map[string]any{domain.ArgTopics: []any{topic}},
		})
	case "/back":
		return c.invoke(ctx, domain.FunctionCall{Name: domain.FuncGoBackToTopics})
	case "/exit":
		return c.invoke(ctx, domain.FunctionCall{Name: domain.FuncExitConversation})
	}

	if strings.HasPrefix(cmd, "/") {
		fmt.Fprintf(c.out, ">>> unknown command %s (try /help)\n", cmd)
		return false, nil
	}

	c.logger.Debug("console turn", "session_id", c.sessionID, "chars", len(line))
	return false, c.svc.TurnComplete(ctx, c.sessionID)
}

// resolveTopic maps a 1-based catalog number or a case-insensitive name to the
// catalog name. Anything else is passed through for the flow to reject.
func (c *Console) resolveTopic(ctx context.Context, arg string) (string, error) {
	snap, err := c.svc.Snapshot(ctx, c.sessionID)
	if err != nil {
		return "", err
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(snap.AllTopics) {
		return snap.AllTopics[n-1], nil
	}
	for _, t := range snap.AllTopics {
		if strings.EqualFold(t, arg) {
			return t, nil
		}
	}
	return arg, nil
}

func (c *Console) invoke(ctx context.Context, call domain.FunctionCall) (bool, error) {
	node, err := c.svc.Invoke(ctx, c.sessionID, call)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSessionTerminated):
		fmt.Fprintln(c.out, ">>> The conversation has ended.")
		return true, nil
	case errors.Is(err, domain.ErrInvalidArguments),
		errors.Is(err, domain.ErrFunctionNotOffered),
		errors.Is(err, domain.ErrUnknownFunction):
		fmt.Fprintf(c.out, ">>> %v\n", err)
		return false, nil
	default:
		return false, err
	}

	c.show(node)
	return node.Ends(), nil
}

func (c *Console) show(node domain.DialogueNode) {
	c.print(tui.NodeMarkdown(node))
}

func (c *Console) print(markdown string) {
	out, err := c.render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprintln(c.out, out)
}
