package flow

import "github.com/aretw0/courseflow/pkg/domain"

// Edge is one transition of the dialogue graph.
type Edge struct {
	From     domain.NodeName
	To       domain.NodeName
	Function domain.FunctionName
	// Advertised is false for transitions accepted but not offered by From.
	Advertised bool
}

// Nodes lists the dialogue nodes, entry node first.
func Nodes() []domain.NodeName {
	return []domain.NodeName{domain.NodeInitial, domain.NodeQuestions, domain.NodeExit}
}

// Edges lists every transition the dispatch table can take.
func Edges() []Edge {
	return []Edge{
		{From: domain.NodeInitial, To: domain.NodeQuestions, Function: domain.FuncRecordTopicInterest, Advertised: true},
		{From: domain.NodeQuestions, To: domain.NodeInitial, Function: domain.FuncGoBackToTopics, Advertised: true},
		{From: domain.NodeQuestions, To: domain.NodeExit, Function: domain.FuncExitConversation, Advertised: true},
		{From: domain.NodeInitial, To: domain.NodeExit, Function: domain.FuncExitConversation},
	}
}

// Visited returns the nodes a session has passed through, judging by its state.
func Visited(state *domain.SessionState) []domain.NodeName {
	visited := []domain.NodeName{domain.NodeInitial}
	if len(state.DiscussedTopics) > 0 || state.CurrentNode == domain.NodeQuestions {
		visited = append(visited, domain.NodeQuestions)
	}
	if state.Terminated {
		visited = append(visited, domain.NodeExit)
	}
	return visited
}

// Current returns the node the session is at.
func Current(state *domain.SessionState) domain.NodeName {
	if state.Terminated {
		return domain.NodeExit
	}
	return state.CurrentNode
}
