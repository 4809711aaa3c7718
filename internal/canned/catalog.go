// Package canned holds the canned-reply catalog offered by the composer's
// slash menu, and the sources it can be loaded from.
package canned

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a canned message does not exist.
var ErrNotFound = errors.New("canned message not found")

// DefaultPerPage is the page size requested when loading a catalog.
const DefaultPerPage = 100

// Message is a reusable reply snippet.
type Message struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Shortcut string `json:"shortcut" yaml:"shortcut"`
	Body     string `json:"body" yaml:"body"`
	Active   bool   `json:"is_active" yaml:"active"`
}

// Validate checks the fields required to offer a message in the menu.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return errors.New("body is required")
	}
	if strings.ContainsAny(m.Shortcut, " \t\n") {
		return fmt.Errorf("shortcut %q must not contain whitespace", m.Shortcut)
	}
	return nil
}

// ListOptions narrows a catalog listing.
type ListOptions struct {
	IsActive bool
	PerPage  int
}

// Source lists canned messages.
type Source interface {
	List(ctx context.Context, opts ListOptions) ([]Message, error)
}

// Catalog is an immutable ordered list of canned messages.
type Catalog struct {
	items []Message
}

// NewCatalog copies items into a catalog.
func NewCatalog(items []Message) Catalog {
	out := make([]Message, len(items))
	copy(out, items)
	return Catalog{items: out}
}

// Load fetches active messages from src once.
func Load(ctx context.Context, src Source, perPage int) (Catalog, error) {
	if src == nil {
		return Catalog{}, nil
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	items, err := src.List(ctx, ListOptions{IsActive: true, PerPage: perPage})
	if err != nil {
		return Catalog{}, fmt.Errorf("load canned messages: %w", err)
	}
	return NewCatalog(items), nil
}

// Len is the number of messages.
func (c Catalog) Len() int { return len(c.items) }

// Items returns a copy of the messages in order.
func (c Catalog) Items() []Message {
	out := make([]Message, len(c.items))
	copy(out, c.items)
	return out
}

// Get finds a message by ID.
func (c Catalog) Get(id string) (Message, error) {
	for _, m := range c.items {
		if m.ID == id {
			return m, nil
		}
	}
	return Message{}, ErrNotFound
}

// Filter returns up to limit messages whose title, shortcut or body contains
// query, ignoring case. An empty query matches everything.
func (c Catalog) Filter(query string, limit int) []Message {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Message, 0, min(max(limit, 0), len(c.items)))
	for _, m := range c.items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if q == "" || m.matches(q) {
			out = append(out, m)
		}
	}
	return out
}

func (m Message) matches(lowerQuery string) bool {
	return strings.Contains(strings.ToLower(m.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(m.Shortcut), lowerQuery) ||
		strings.Contains(strings.ToLower(m.Body), lowerQuery)
}

// filterActive applies ListOptions to an in-memory listing.
func filterActive(items []Message, opts ListOptions) []Message {
	out := make([]Message, 0, len(items))
	for _, m := range items {
		if opts.IsActive && !m.Active {
			continue
		}
		out = append(out, m)
		if opts.PerPage > 0 && len(out) >= opts.PerPage {
			break
		}
	}
	return out
}
