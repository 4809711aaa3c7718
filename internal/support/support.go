// Package support is the client side of the support backend: conversations,
// their messages, replies and status changes.
package support

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrConversationNotFound is returned for unknown conversation IDs.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation statuses.
const (
	StatusOpen     = "open"
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusPending, StatusResolved:
		return true
	}
	return false
}

// Message is one entry in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	FromAgent bool      `json:"from_agent"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a support thread with one customer.
type Conversation struct {
	ID       string    `json:"id"`
	Subject  string    `json:"subject"`
	Customer string    `json:"customer"`
	Status   string    `json:"status"`
	Messages []Message `json:"messages"`
}

// UserLastMessage is the body of the customer's most recent message.
func (c Conversation) UserLastMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if !c.Messages[i].FromAgent {
			return c.Messages[i].Body
		}
	}
	return ""
}

// Preview is a one-line summary for lists.
func (c Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return ""
	}
	body := strings.Join(strings.Fields(c.Messages[len(c.Messages)-1].Body), " ")
	return body
}

// Client talks to the support backend.
type Client interface {
	List(ctx context.Context) ([]Conversation, error)
	Get(ctx context.Context, id string) (Conversation, error)
	SendReply(ctx context.Context, id, body string) (Message, error)
	SetStatus(ctx context.Context, id, status string) error
}
