package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/courseflow/internal/presentation/graph"
	"github.com/aretw0/courseflow/pkg/domain"
)

func TestFlow_Shapes(t *testing.T) {
	out := graph.Flow(nil)

	for _, want := range []string{
		"graph TD",
		`initial(("initial"))`,
		`questions[/"questions"/]`,
		`exit_conversation(["exit_conversation"])`,
		`initial -- "record_topic_interest" --> questions`,
		`questions -- "go_back_to_topics" --> initial`,
		`questions -- "exit_conversation" --> exit_conversation`,
		`initial -. "exit_conversation" .-> exit_conversation`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestFlow_Overlay(t *testing.T) {
	state := domain.NewSessionState("s1", []string{"A", "B"})
	state.MarkDiscussed("A")
	state.CurrentNode = domain.NodeQuestions
	state.CurrentTopics = []string{"A"}

	out := graph.Flow(graph.OverlayFor(state))

	assert.Contains(t, out, `initial(("initial <br/> 1/2"))`)
	assert.Contains(t, out, "class initial visited;")
	assert.Contains(t, out, "class questions current;")
	assert.NotContains(t, out, "class questions visited;")
	assert.Equal(t, 1, strings.Count(out, "current;"))
}

func TestFlow_TerminatedOverlay(t *testing.T) {
	state := domain.NewSessionState("s1", []string{"A"})
	state.Terminated = true

	out := graph.Flow(graph.OverlayFor(state))
	assert.Contains(t, out, "class exit_conversation current;")
}
