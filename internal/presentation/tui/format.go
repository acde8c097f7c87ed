package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/schema"
)

// NodeMarkdown describes an activated node for the console.
func NodeMarkdown(node domain.DialogueNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", node.Name)
	fmt.Fprintf(&b, "%s\n\n", quote(node.TaskInstructions))

	if len(node.Functions) == 0 {
		if node.Ends() {
			b.WriteString("_Conversation ends._\n")
		} else {
			b.WriteString("_No functions available._\n")
		}
		return b.String()
	}

	b.WriteString("**Functions**\n\n")
	for _, fn := range node.Functions {
		fmt.Fprintf(&b, "- `%s`", fn.Name)
		if t, ok := fn.Parameters[domain.ArgTopics]; ok {
			if choices := enumValues(t); len(choices) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(choices, ", "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// StateMarkdown renders a snapshot as a checklist.
func StateMarkdown(s domain.StateSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Progress** %s at `%s`\n\n", s.Progress, s.CurrentNode)
	for i, topic := range s.AllTopics {
		mark := " "
		for _, d := range s.DiscussedTopics {
			if d == topic {
				mark = "x"
			}
		}
		line := fmt.Sprintf("%d. [%s] %s", i+1, mark, topic)
		for _, c := range s.CurrentTopics {
			if c == topic {
				line = "**" + line + "**"
			}
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func enumValues(t schema.Type) []string {
	slice, ok := schema.Unwrap(t).(*schema.SliceType)
	if !ok {
		return nil
	}
	enum, ok := slice.Elem().(*schema.EnumType)
	if !ok {
		return nil
	}
	return enum.Values()
}

func quote(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
