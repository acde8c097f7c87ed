package domain

// PostActionEndConversation asks the host to tear down the pipeline once the node's
// output has been produced.
const PostActionEndConversation = "end_conversation"

// PostAction is a host-side action to run after a node's output.
type PostAction struct {
	Type string `json:"type"`
}

// DialogueNode is the instruction and capability bundle for the model-driving layer.
// Nodes are values: building the same node twice from the same state yields equal nodes.
type DialogueNode struct {
	Name               NodeName       `json:"name"`
	RoleInstructions   string         `json:"role_instructions,omitempty"`
	TaskInstructions   string         `json:"task_instructions"`
	Functions          []FunctionSpec `json:"available_functions"`
	RespondImmediately bool           `json:"respond_immediately"`
	PostActions        []PostAction   `json:"post_actions,omitempty"`
}

// Function returns the offered function with the given name.
func (n DialogueNode) Function(name FunctionName) (FunctionSpec, bool) {
	for _, f := range n.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return FunctionSpec{}, false
}

// Ends reports whether activating the node ends the conversation.
func (n DialogueNode) Ends() bool {
	for _, a := range n.PostActions {
		if a.Type == PostActionEndConversation {
			return true
		}
	}
	return false
}
