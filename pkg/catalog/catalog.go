// Package catalog holds the static, ordered list of topics a user can ask about.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/courseflow/pkg/domain"
)

// Topic is a catalog entry. Keywords document typical trigger phrases.
type Topic struct {
	Name        string   `yaml:"name" json:"name" mapstructure:"name"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty" mapstructure:"keywords"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty" mapstructure:"description"`
}

// Catalog is an immutable, ordered set of topics.
type Catalog struct {
	topics []Topic
}

// New creates a catalog. Topic names must be non-empty and unique.
// An empty catalog is valid.
func New(topics ...Topic) (*Catalog, error) {
	seen := make(map[string]struct{}, len(topics))
	for i, t := range topics {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("topic %d: name is empty", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("topic %q: %w", name, errDuplicateTopic)
		}
		seen[name] = struct{}{}
	}

	c := &Catalog{topics: make([]Topic, len(topics))}
	for i, t := range topics {
		c.topics[i] = Topic{
			Name:        strings.TrimSpace(t.Name),
			Keywords:    slices.Clone(t.Keywords),
			Description: t.Description,
		}
	}
	return c, nil
}

var errDuplicateTopic = errors.New("duplicate topic")

// Len returns the number of topics.
func (c *Catalog) Len() int { return len(c.topics) }

// Names returns the topic names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.topics))
	for i, t := range c.topics {
		names[i] = t.Name
	}
	return names
}

// Topics returns a copy of the entries in catalog order.
func (c *Catalog) Topics() []Topic {
	out := make([]Topic, len(c.topics))
	for i, t := range c.topics {
		t.Keywords = slices.Clone(t.Keywords)
		out[i] = t
	}
	return out
}

// Topic looks up a topic by name.
func (c *Catalog) Topic(name string) (Topic, bool) {
	for _, t := range c.topics {
		if t.Name == name {
			t.Keywords = slices.Clone(t.Keywords)
			return t, true
		}
	}
	return Topic{}, false
}

// Remaining returns the catalog topics not yet discussed in state, in catalog order.
func (c *Catalog) Remaining(state *domain.SessionState) []string {
	remaining := make([]string, 0, len(c.topics))
	for _, t := range c.topics {
		if state == nil || !state.HasDiscussed(t.Name) {
			remaining = append(remaining, t.Name)
		}
	}
	return remaining
}

// NewSessionState creates a fresh session positioned at the initial node with this catalog.
func (c *Catalog) NewSessionState(sessionID string) *domain.SessionState {
	return domain.NewSessionState(sessionID, c.Names())
}
