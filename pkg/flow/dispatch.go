package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/schema"
)

// handlers is the fixed dispatch table from function name to transition.
var handlers = map[domain.FunctionName]Handler{
	domain.FuncRecordTopicInterest: RecordTopicInterest,
	domain.FuncGoBackToTopics:      GoBackToTopics,
	domain.FuncExitConversation:    ExitConversation,
}

// alwaysAccepted lists functions honored from any node, advertised or not.
var alwaysAccepted = map[domain.FunctionName]bool{
	domain.FuncExitConversation: true,
}

// Functions returns the names known to the dispatch table.
func Functions() []domain.FunctionName {
	return []domain.FunctionName{
		domain.FuncRecordTopicInterest,
		domain.FuncGoBackToTopics,
		domain.FuncExitConversation,
	}
}

// Dispatch validates call against the node active for state and runs its handler.
//
// A rejected call leaves state untouched and returns the active node with an error
// wrapping ErrUnknownFunction, ErrFunctionNotOffered or ErrInvalidArguments. Calls on
// a terminated session return the exit node with ErrSessionTerminated.
// A nil Notifier discards notifications.
func (f *Flow) Dispatch(ctx context.Context, state *domain.SessionState, call domain.FunctionCall, out Notifier) (Result, error) {
	if out == nil {
		out = discard
	}
	from := f.BuildNode(state)

	if state.Terminated {
		f.transition(ctx, state, call.Name, from.Name, from.Name, domain.OutcomeIgnored)
		return Result{Node: from}, fmt.Errorf("%s: %w", call.Name, domain.ErrSessionTerminated)
	}

	handler, ok := handlers[call.Name]
	if !ok {
		f.reject(ctx, state, call, from, domain.ErrUnknownFunction)
		return Result{Node: from}, fmt.Errorf("%q: %w", call.Name, domain.ErrUnknownFunction)
	}

	if spec, offered := from.Function(call.Name); offered {
		if err := schema.Validate(spec.Parameters, call.Arguments); err != nil {
			f.reject(ctx, state, call, from, err)
			return Result{Node: from}, fmt.Errorf("%s: %w: %w", call.Name, domain.ErrInvalidArguments, err)
		}
	} else if !alwaysAccepted[call.Name] {
		f.reject(ctx, state, call, from, domain.ErrFunctionNotOffered)
		return Result{Node: from}, fmt.Errorf("%s at node %s: %w", call.Name, from.Name, domain.ErrFunctionNotOffered)
	}

	res, err := handler(ctx, f, state, call, out)
	if err != nil {
		f.reject(ctx, state, call, from, err)
		if !errors.Is(err, domain.ErrInvalidArguments) {
			err = fmt.Errorf("%w: %w", domain.ErrInvalidArguments, err)
		}
		return Result{Node: from}, fmt.Errorf("%s: %w", call.Name, err)
	}

	f.transition(ctx, state, call.Name, from.Name, res.Node.Name, domain.OutcomeApplied)
	f.activated(ctx, state, res.Node.Name)
	return res, nil
}

// Activate returns the node active for state and reports its activation.
func (f *Flow) Activate(ctx context.Context, state *domain.SessionState) domain.DialogueNode {
	node := f.BuildNode(state)
	f.activated(ctx, state, node.Name)
	return node
}

func (f *Flow) activated(ctx context.Context, state *domain.SessionState, node domain.NodeName) {
	if f.hooks.OnNodeActivate == nil {
		return
	}
	f.hooks.OnNodeActivate(ctx, &domain.NodeEvent{
		EventBase: f.event(domain.EventNodeActivate, state),
		Node:      node,
	})
}

func (f *Flow) reject(ctx context.Context, state *domain.SessionState, call domain.FunctionCall, at domain.DialogueNode, err error) {
	f.logger.Warn("intent rejected",
		"session_id", state.SessionID,
		"function", call.Name,
		"node", at.Name,
		"err", err,
	)
	f.transition(ctx, state, call.Name, at.Name, at.Name, domain.OutcomeRejected)
}

func (f *Flow) transition(ctx context.Context, state *domain.SessionState, fn domain.FunctionName, from, to domain.NodeName, outcome domain.TransitionOutcome) {
	if f.hooks.OnTransition == nil {
		return
	}
	f.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: f.event(domain.EventTransition, state),
		Function:  fn,
		From:      from,
		To:        to,
		Outcome:   outcome,
	})
}

func (f *Flow) event(t domain.EventType, state *domain.SessionState) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		SessionID: state.SessionID,
	}
}
