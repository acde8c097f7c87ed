package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/schema"
)

func TestDialogueNode_Function(t *testing.T) {
	node := domain.DialogueNode{
		Name: domain.NodeQuestions,
		Functions: []domain.FunctionSpec{
			{Name: domain.FuncGoBackToTopics},
			{Name: domain.FuncExitConversation},
		},
	}

	_, ok := node.Function(domain.FuncExitConversation)
	assert.True(t, ok)
	_, ok = node.Function(domain.FuncRecordTopicInterest)
	assert.False(t, ok)
	assert.False(t, node.Ends())

	exit := domain.DialogueNode{
		Name:        domain.NodeExit,
		PostActions: []domain.PostAction{{Type: domain.PostActionEndConversation}},
	}
	assert.True(t, exit.Ends())
}

func TestDialogueNode_JSON(t *testing.T) {
	node := domain.DialogueNode{
		Name:             domain.NodeInitial,
		TaskInstructions: "Greet.",
		Functions: []domain.FunctionSpec{{
			Name:        domain.FuncRecordTopicInterest,
			Description: "Pick a topic.",
			Parameters:  schema.Schema{domain.ArgTopics: schema.Slice(schema.Enum("A")).Len(1, 1)},
		}},
		RespondImmediately: true,
	}

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "initial", got["name"])
	assert.NotContains(t, got, "role_instructions")

	fns := got["available_functions"].([]any)
	require.Len(t, fns, 1)
	params := fns[0].(map[string]any)["parameters"].(map[string]any)
	assert.Equal(t, "object", params["type"])
}
