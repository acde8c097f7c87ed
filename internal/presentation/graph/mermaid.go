package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/flow"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []domain.NodeName
	CurrentNode  domain.NodeName
	Progress     string
}

// OverlayFor builds the overlay of a session.
func OverlayFor(state *domain.SessionState) *GraphOverlay {
	return &GraphOverlay{
		VisitedNodes: flow.Visited(state),
		CurrentNode:  flow.Current(state),
		Progress:     state.Progress(),
	}
}

// GenerateMermaid produces a Mermaid flowchart of the dialogue graph.
// It applies semantic styling:
// - Entry: ((Circle))
// - Q&A: [/Parallelogram/]
// - Terminal: ([Stadium])
// Transitions a node accepts without advertising them are dotted.
func GenerateMermaid(nodes []domain.NodeName, edges []flow.Edge, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(string(node))

		opener, closer := "[", "]"
		switch node {
		case domain.NodeInitial:
			opener, closer = "((", "))"
		case domain.NodeQuestions:
			opener, closer = "[/", "/]"
		case domain.NodeExit:
			opener, closer = "([", "])"
		}

		label := string(node)
		if overlay != nil && overlay.Progress != "" && node == domain.NodeInitial {
			label = fmt.Sprintf("%s <br/> %s", node, overlay.Progress)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, e := range edges {
		from := sanitizeMermaidID(string(e.From))
		to := sanitizeMermaidID(string(e.To))
		if e.Advertised {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, e.Function, to)
		} else {
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, e.Function, to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text stays readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, node := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(string(node))
			if safeID != "" && !seen[safeID] && node != overlay.CurrentNode {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

// Flow renders the full dialogue graph with an optional overlay.
func Flow(overlay *GraphOverlay) string {
	return GenerateMermaid(flow.Nodes(), flow.Edges(), overlay)
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
