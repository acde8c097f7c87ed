package flow

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/courseflow/pkg/domain"
)

// Result is what a transition handler hands back to the conversation engine.
// The next node is always carried in full; Node.Name identifies it.
type Result struct {
	Node domain.DialogueNode
}

// Handler performs a transition for one function.
type Handler func(ctx context.Context, f *Flow, state *domain.SessionState, call domain.FunctionCall, out Notifier) (Result, error)

// TopicArgs are the decoded arguments of record_topic_interest.
type TopicArgs struct {
	Topics []string `mapstructure:"topics"`
}

// DecodeTopicArgs decodes raw call arguments into TopicArgs.
func DecodeTopicArgs(args map[string]any) (TopicArgs, error) {
	var out TopicArgs
	if err := mapstructure.Decode(args, &out); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrInvalidArguments, err)
	}
	if len(out.Topics) == 0 {
		return out, fmt.Errorf("%w: %q requires one topic", domain.ErrInvalidArguments, domain.ArgTopics)
	}
	return out, nil
}

// RecordTopicInterest marks the first named topic as discussed, focuses it and moves
// to the questions node. Recording a topic twice leaves DiscussedTopics unchanged.
func RecordTopicInterest(ctx context.Context, f *Flow, state *domain.SessionState, call domain.FunctionCall, out Notifier) (Result, error) {
	args, err := DecodeTopicArgs(call.Arguments)
	if err != nil {
		return Result{}, err
	}
	topic := args.Topics[0]
	if !state.IsTopic(topic) {
		return Result{}, fmt.Errorf("%w: unknown topic %q", domain.ErrInvalidArguments, topic)
	}

	if state.MarkDiscussed(topic) {
		f.logger.Info("topic marked as discussed", "session_id", state.SessionID, "topic", topic)
	} else {
		f.logger.Debug("topic already discussed", "session_id", state.SessionID, "topic", topic)
	}
	state.CurrentTopics = []string{topic}
	state.CurrentNode = domain.NodeQuestions

	out.SendStateUpdate(ctx, state)

	f.logger.Info("going to Q&A", "session_id", state.SessionID, "topic", topic, "progress", state.Progress())
	return Result{Node: f.BuildQuestionsNode(state, topic)}, nil
}

// GoBackToTopics clears the focus and returns to the initial node, which offers only
// the topics not yet discussed.
func GoBackToTopics(ctx context.Context, f *Flow, state *domain.SessionState, call domain.FunctionCall, out Notifier) (Result, error) {
	state.CurrentNode = domain.NodeInitial
	state.CurrentTopics = []string{}

	out.SendStateUpdate(ctx, state)

	f.logger.Info("back to topic selection", "session_id", state.SessionID, "progress", state.Progress())
	return Result{Node: f.BuildInitialNode(state)}, nil
}

// ExitConversation ends the session. It leaves the topic state untouched and marks
// the session terminated so later intents are ignored.
func ExitConversation(ctx context.Context, f *Flow, state *domain.SessionState, call domain.FunctionCall, out Notifier) (Result, error) {
	state.Terminated = true

	f.logger.Info("ending conversation",
		"session_id", state.SessionID,
		"discussed", len(state.DiscussedTopics),
		"topics", state.DiscussedTopics,
	)
	return Result{Node: f.BuildExitNode(state)}, nil
}
