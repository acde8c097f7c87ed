package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeActivate EventType = "node_activate"
	EventTransition   EventType = "transition"
	EventBroadcast    EventType = "broadcast"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent reports that a node was handed to the model-driving layer.
type NodeEvent struct {
	EventBase
	Node NodeName `json:"node"`
}

// TransitionOutcome classifies how an intent was handled.
type TransitionOutcome string

const (
	OutcomeApplied    TransitionOutcome = "applied"
	OutcomeRejected   TransitionOutcome = "rejected"
	OutcomeIgnored    TransitionOutcome = "ignored"
	OutcomeSent       TransitionOutcome = "sent"
	OutcomeSuppressed TransitionOutcome = "suppressed"
	OutcomeFailed     TransitionOutcome = "failed"
)

// TransitionEvent reports the handling of an intent.
type TransitionEvent struct {
	EventBase
	Function FunctionName      `json:"function"`
	From     NodeName          `json:"from"`
	To       NodeName          `json:"to"`
	Outcome  TransitionOutcome `json:"outcome"`
}

// BroadcastEvent reports a state broadcast attempt.
type BroadcastEvent struct {
	EventBase
	Outcome TransitionOutcome `json:"outcome"`
}

// LifecycleHooks defines callbacks for dialogue observability.
type LifecycleHooks struct {
	OnNodeActivate func(context.Context, *NodeEvent)
	OnTransition   func(context.Context, *TransitionEvent)
	OnBroadcast    func(context.Context, *BroadcastEvent)
}
