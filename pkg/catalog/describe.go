package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// DescribeSelection builds the description of the topic-selection function for the
// given remaining topics. Only remaining topics with keywords contribute examples.
func (c *Catalog) DescribeSelection(remaining []string) string {
	var examples []string
	for _, t := range c.topics {
		if len(t.Keywords) == 0 || !slices.Contains(remaining, t.Name) {
			continue
		}
		examples = append(examples, fmt.Sprintf("- User asks about %s -> Answer, then call with %q",
			strings.Join(t.Keywords, "/"), t.Name))
	}

	examplesText := "No topics remaining"
	if len(examples) > 0 {
		examplesText = strings.Join(examples, "\n")
	}

	return fmt.Sprintf(`Mark a topic as discussed after you answer a question about it.

Call this AFTER you provide information about a topic to highlight it in the UI.

%s

Available topics: %s`, examplesText, strings.Join(remaining, ", "))
}

// DescribeTopicsArgument builds the description of the "topics" argument.
func DescribeTopicsArgument(remaining []string) string {
	return "Topic discussed. Pick ONE at a time. Available: " + strings.Join(remaining, ", ")
}
