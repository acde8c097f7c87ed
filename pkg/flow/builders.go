package flow

import (
	"github.com/aretw0/courseflow/pkg/catalog"
	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/schema"
)

// referenceSeparator joins the Q&A persona and the reference text.
const referenceSeparator = "\n\nFULL COURSE DETAILS:\n\n"

// BuildInitialNode returns the welcome node. Its only function records interest in
// one of the topics remaining in state; when none remain the node offers no function.
func (f *Flow) BuildInitialNode(state *domain.SessionState) domain.DialogueNode {
	functions := []domain.FunctionSpec{}
	if fn, ok := f.topicSelection(f.catalog.Remaining(state)); ok {
		functions = append(functions, fn)
	}

	return domain.DialogueNode{
		Name:               domain.NodeInitial,
		RoleInstructions:   f.content.Initial.Role,
		TaskInstructions:   f.content.Initial.Task,
		Functions:          functions,
		RespondImmediately: true,
	}
}

// BuildQuestionsNode returns the Q&A node for topic. The reference text covers every
// topic, so the node content does not vary with it.
func (f *Flow) BuildQuestionsNode(state *domain.SessionState, topic string) domain.DialogueNode {
	return domain.DialogueNode{
		Name:             domain.NodeQuestions,
		RoleInstructions: f.content.Questions.Role + referenceSeparator + f.content.Questions.Reference,
		TaskInstructions: f.content.Questions.Task,
		Functions: []domain.FunctionSpec{
			{
				Name:        domain.FuncGoBackToTopics,
				Description: orDefault(f.content.Functions.GoBack, content.DefaultGoBackDescription),
				Parameters:  schema.Schema{},
			},
			{
				Name:        domain.FuncExitConversation,
				Description: orDefault(f.content.Functions.Exit, content.DefaultExitDescription),
				Parameters:  schema.Schema{},
			},
		},
		RespondImmediately: true,
	}
}

// BuildExitNode returns the terminal farewell node.
func (f *Flow) BuildExitNode(state *domain.SessionState) domain.DialogueNode {
	return domain.DialogueNode{
		Name:             domain.NodeExit,
		TaskInstructions: f.content.Exit.Task,
		Functions:        []domain.FunctionSpec{},
		PostActions: []domain.PostAction{
			{Type: domain.PostActionEndConversation},
		},
	}
}

// BuildNode rebuilds the node that is active for state.
func (f *Flow) BuildNode(state *domain.SessionState) domain.DialogueNode {
	switch {
	case state.Terminated:
		return f.BuildExitNode(state)
	case state.CurrentNode == domain.NodeQuestions:
		topic := ""
		if len(state.CurrentTopics) > 0 {
			topic = state.CurrentTopics[0]
		}
		return f.BuildQuestionsNode(state, topic)
	default:
		return f.BuildInitialNode(state)
	}
}

// topicSelection builds a fresh record_topic_interest declaration whose "topics"
// argument only accepts one of remaining.
func (f *Flow) topicSelection(remaining []string) (domain.FunctionSpec, bool) {
	if len(remaining) == 0 {
		return domain.FunctionSpec{}, false
	}
	return domain.FunctionSpec{
		Name:        domain.FuncRecordTopicInterest,
		Description: f.catalog.DescribeSelection(remaining),
		Parameters: schema.Schema{
			domain.ArgTopics: schema.Describe(
				catalog.DescribeTopicsArgument(remaining),
				schema.Slice(schema.Enum(remaining...)).Len(1, 1),
			),
		},
	}, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
