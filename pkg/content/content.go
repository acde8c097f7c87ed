// Package content loads the reference material that parameterizes the dialogue:
// the topic catalog, the instruction templates of every node and the domain
// reference text. Swapping the document retargets the whole conversation.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/courseflow/pkg/catalog"
	"github.com/aretw0/courseflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

// InitialNode holds the welcome node text and display metadata.
type InitialNode struct {
	DisplayTitle string `yaml:"display_title" json:"display_title"`
	Greeting     string `yaml:"greeting" json:"greeting"`
	Role         string `yaml:"role" json:"role"`
	Task         string `yaml:"task" json:"task"`
}

// QuestionsNode holds the Q&A persona, directive and reference text.
type QuestionsNode struct {
	Role      string `yaml:"role" json:"role"`
	Task      string `yaml:"task" json:"task"`
	Reference string `yaml:"reference" json:"reference"`
}

// ExitNode holds the farewell script.
type ExitNode struct {
	Task string `yaml:"task" json:"task"`
}

// Functions overrides the descriptions of the static transition functions.
type Functions struct {
	GoBack string `yaml:"go_back_to_topics" json:"go_back_to_topics"`
	Exit   string `yaml:"exit_conversation" json:"exit_conversation"`
}

// Content is the full reference configuration of a dialogue domain.
type Content struct {
	Topics    []catalog.Topic `yaml:"topics" json:"topics"`
	Initial   InitialNode     `yaml:"initial" json:"initial"`
	Questions QuestionsNode   `yaml:"questions" json:"questions"`
	Exit      ExitNode        `yaml:"exit" json:"exit"`
	Functions Functions       `yaml:"functions" json:"functions"`
}

// Default returns the embedded course content.
func Default() *Content {
	c, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded content is invalid: %v", err))
	}
	return c
}

// Load reads a content document from path. An empty path selects the embedded default.
func Load(path string) (*Content, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML content document.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every instruction a node needs is configured.
// Missing reference text wraps domain.ErrMissingReference, an empty role wraps
// domain.ErrEmptyPersona and an empty task wraps domain.ErrMissingContent.
func (c *Content) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Questions.Reference) == "" {
		errs = append(errs, fmt.Errorf("questions.reference: %w", domain.ErrMissingReference))
	}
	if strings.TrimSpace(c.Questions.Role) == "" {
		errs = append(errs, fmt.Errorf("questions.role: %w", domain.ErrEmptyPersona))
	}
	tasks := map[string]string{
		"initial.task":   c.Initial.Task,
		"questions.task": c.Questions.Task,
		"exit.task":      c.Exit.Task,
	}
	for _, key := range []string{"initial.task", "questions.task", "exit.task"} {
		if strings.TrimSpace(tasks[key]) == "" {
			errs = append(errs, fmt.Errorf("%s: %w", key, domain.ErrMissingContent))
		}
	}
	if _, err := catalog.New(c.Topics...); err != nil {
		errs = append(errs, fmt.Errorf("topics: %w", err))
	}
	return errors.Join(errs...)
}

// Catalog builds the topic catalog.
func (c *Content) Catalog() (*catalog.Catalog, error) {
	return catalog.New(c.Topics...)
}

// ServiceName is the human-readable name of the assistant.
func (c *Content) ServiceName() string {
	if c.Initial.DisplayTitle != "" {
		return c.Initial.DisplayTitle
	}
	return "courseflow"
}

func (c *Content) applyDefaults() {
	if c.Functions.GoBack == "" {
		c.Functions.GoBack = DefaultGoBackDescription
	}
	if c.Functions.Exit == "" {
		c.Functions.Exit = DefaultExitDescription
	}
}

// DefaultGoBackDescription documents when to return to topic selection.
const DefaultGoBackDescription = `Use when user wants to go back to topic selection or ask about a different topic.

Triggers: "go back", "different topic", "other topics", "start over", "back to menu"`

// DefaultExitDescription documents when to end the conversation.
const DefaultExitDescription = `Use ONLY when user EXPLICITLY wants to quit/exit/end the conversation.

IMPORTANT: "skip that topic" = skip current topic, NOT exit!

ONLY exit for CLEAR exit signals:
- "I want to quit/exit/stop"
- "Goodbye" / "I'm done"
- "That's all I need"

When uncertain, ASK: "Do you want to end the conversation, or just move to another topic?"`
