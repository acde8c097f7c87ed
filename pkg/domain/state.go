package domain

import (
	"fmt"
	"maps"
	"slices"
)

// NodeName identifies a dialogue node.
type NodeName string

const (
	// NodeInitial greets the user and offers topic selection.
	NodeInitial NodeName = "initial"
	// NodeQuestions answers questions about the selected topic.
	NodeQuestions NodeName = "questions"
	// NodeExit says goodbye and ends the conversation.
	NodeExit NodeName = "exit_conversation"
)

// TopicResponse records the user's interaction with a topic.
type TopicResponse struct {
	Interested bool `json:"interested"`
}

// SessionState is the dialogue progress of a single session.
//
// DiscussedTopics is insertion-ordered and only grows within a session.
// Remaining topics are never stored; use Remaining.
type SessionState struct {
	SessionID       string                   `json:"session_id"`
	AllTopics       []string                 `json:"all_topics"`
	DiscussedTopics []string                 `json:"discussed_topics"`
	Responses       map[string]TopicResponse `json:"responses"`
	CurrentTopics   []string                 `json:"current_topics"`
	CurrentNode     NodeName                 `json:"current_node"`

	// Terminated is set once the exit node has been activated.
	// It is lifecycle bookkeeping and is not part of the display snapshot.
	Terminated bool `json:"terminated,omitempty"`
}

// NewSessionState creates a fresh state positioned at the initial node.
func NewSessionState(sessionID string, allTopics []string) *SessionState {
	s := &SessionState{
		SessionID: sessionID,
		AllTopics: slices.Clone(allTopics),
	}
	s.Reset()
	return s
}

// Reset clears every dynamic field, keeping the session ID and topic list.
func (s *SessionState) Reset() {
	s.DiscussedTopics = []string{}
	s.Responses = make(map[string]TopicResponse)
	s.CurrentTopics = []string{}
	s.CurrentNode = NodeInitial
	s.Terminated = false
}

// Remaining returns AllTopics minus DiscussedTopics, preserving AllTopics order.
// It is recomputed on every call.
func (s *SessionState) Remaining() []string {
	remaining := make([]string, 0, len(s.AllTopics))
	for _, t := range s.AllTopics {
		if !slices.Contains(s.DiscussedTopics, t) {
			remaining = append(remaining, t)
		}
	}
	return remaining
}

// IsTopic reports whether topic belongs to the session's catalog.
func (s *SessionState) IsTopic(topic string) bool {
	return slices.Contains(s.AllTopics, topic)
}

// HasDiscussed reports whether topic was already discussed.
func (s *SessionState) HasDiscussed(topic string) bool {
	return slices.Contains(s.DiscussedTopics, topic)
}

// MarkDiscussed appends topic to the discussed set and records interest.
// It returns false, changing nothing, when the topic was already discussed.
func (s *SessionState) MarkDiscussed(topic string) bool {
	if s.HasDiscussed(topic) {
		return false
	}
	if s.Responses == nil {
		s.Responses = make(map[string]TopicResponse)
	}
	s.Responses[topic] = TopicResponse{Interested: true}
	s.DiscussedTopics = append(s.DiscussedTopics, topic)
	return true
}

// Progress renders "<discussed>/<total>".
func (s *SessionState) Progress() string {
	return fmt.Sprintf("%d/%d", len(s.DiscussedTopics), len(s.AllTopics))
}

// Clone returns a deep copy of the state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.AllTopics = slices.Clone(s.AllTopics)
	c.DiscussedTopics = slices.Clone(s.DiscussedTopics)
	c.CurrentTopics = slices.Clone(s.CurrentTopics)
	c.Responses = maps.Clone(s.Responses)
	return &c
}
