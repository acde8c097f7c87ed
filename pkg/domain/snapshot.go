package domain

import (
	"maps"
	"reflect"
	"slices"
)

// MessageTypeStateUpdate is the display message type for state snapshots.
const MessageTypeStateUpdate = "conversation_state_update"

// StateSnapshot is the display-ready projection of a SessionState.
// It owns its slices and map, so later state mutations never leak into it.
type StateSnapshot struct {
	Type            string                   `json:"type"`
	AllTopics       []string                 `json:"all_topics"`
	DiscussedTopics []string                 `json:"discussed_topics"`
	RemainingTopics []string                 `json:"remaining_topics"`
	CurrentTopics   []string                 `json:"current_topics"`
	Responses       map[string]TopicResponse `json:"responses"`
	CurrentNode     NodeName                 `json:"current_node"`
	Progress        string                   `json:"progress"`
}

// Snapshot projects the state for the display layer.
func (s *SessionState) Snapshot() StateSnapshot {
	responses := maps.Clone(s.Responses)
	if responses == nil {
		responses = map[string]TopicResponse{}
	}
	return StateSnapshot{
		Type:            MessageTypeStateUpdate,
		AllTopics:       nonNil(slices.Clone(s.AllTopics)),
		DiscussedTopics: nonNil(slices.Clone(s.DiscussedTopics)),
		RemainingTopics: s.Remaining(),
		CurrentTopics:   nonNil(slices.Clone(s.CurrentTopics)),
		Responses:       responses,
		CurrentNode:     s.CurrentNode,
		Progress:        s.Progress(),
	}
}

// Equal compares two snapshots by value.
func (s StateSnapshot) Equal(other StateSnapshot) bool {
	return reflect.DeepEqual(s, other)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
