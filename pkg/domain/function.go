package domain

import (
	"github.com/aretw0/courseflow/pkg/schema"
)

// FunctionName is the tag identifying a transition function.
// Handlers are resolved from the tag through a fixed dispatch table, so nodes carry
// no callables and stay serializable.
type FunctionName string

const (
	FuncRecordTopicInterest FunctionName = "record_topic_interest"
	FuncGoBackToTopics      FunctionName = "go_back_to_topics"
	FuncExitConversation    FunctionName = "exit_conversation"
)

// ArgTopics is the argument carrying the selected topic(s).
const ArgTopics = "topics"

// FunctionSpec declares a transition function offered by a node.
type FunctionSpec struct {
	Name        FunctionName  `json:"name"`
	Description string        `json:"description"`
	Parameters  schema.Schema `json:"parameters"`
}

// FunctionCall is a recognized intent delivered by the intent-matching layer.
type FunctionCall struct {
	Name      FunctionName   `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
