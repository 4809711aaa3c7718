package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Context is the agent's working context: the conversation they last had
// open and the inbox filter, restored when the TUI starts.
type Context struct {
	// ConversationID is the currently selected conversation.
	ConversationID string `yaml:"conversation,omitempty" json:"conversation,omitempty"`
	// Subject is the conversation subject (for display).
	Subject string `yaml:"subject,omitempty" json:"subject,omitempty"`
	// Filter limits the inbox to one status; empty shows all.
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`
	// UpdatedAt is when the context was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// IsEmpty returns true if no context is set.
func (c *Context) IsEmpty() bool {
	return c.ConversationID == "" && c.Filter == ""
}

// HasConversation returns true if a conversation is selected.
func (c *Context) HasConversation() bool {
	return c.ConversationID != ""
}

// Clear removes all context.
func (c *Context) Clear() {
	c.ConversationID = ""
	c.Subject = ""
	c.Filter = ""
	c.UpdatedAt = time.Now()
}

// SetConversation selects a conversation.
func (c *Context) SetConversation(id, subject string) {
	c.ConversationID = id
	c.Subject = subject
	c.UpdatedAt = time.Now()
}

// SetFilter sets the inbox status filter. Changing the filter keeps the
// selected conversation; the inbox re-selects if it is filtered out.
func (c *Context) SetFilter(status string) {
	c.Filter = status
	c.UpdatedAt = time.Now()
}

// String returns a human-readable representation of the context.
func (c *Context) String() string {
	if c.IsEmpty() {
		return "(no context set)"
	}
	var parts []string
	if c.HasConversation() {
		name := c.Subject
		if name == "" {
			name = shortID(c.ConversationID)
		}
		parts = append(parts, fmt.Sprintf("conversation:%s", name))
	}
	if c.Filter != "" {
		parts = append(parts, fmt.Sprintf("filter:%s", c.Filter))
	}
	result := parts[0]
	for i := 1; i < len(parts); i++ {
		result += " " + parts[i]
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ContextStore manages loading and saving context.
type ContextStore struct {
	path string
	mu   sync.RWMutex
}

// NewContextStore creates a new context store.
// If path is empty, uses the default path (~/.config/replydesk/context.yaml).
func NewContextStore(path string) *ContextStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "replydesk", "context.yaml")
	}
	return &ContextStore{path: path}
}

// DefaultContextStore returns a context store using the default path.
func DefaultContextStore() *ContextStore {
	return NewContextStore("")
}

// Path returns the context file path.
func (s *ContextStore) Path() string {
	return s.path
}

// Load reads the context from disk.
// Returns an empty context if the file doesn't exist.
func (s *ContextStore) Load() (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := &Context{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ctx, nil
		}
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	if err := yaml.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("failed to parse context file: %w", err)
	}

	return ctx, nil
}

// Save writes the context to disk.
func (s *ContextStore) Save(ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}

	data, err := yaml.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write context file: %w", err)
	}

	return nil
}

// Clear removes the context file.
func (s *ContextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove context file: %w", err)
	}
	return nil
}
