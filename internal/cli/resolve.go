// Package cli provides CLI helpers for resolving IDs and names.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tOgg1/replydesk/internal/support"
)

const maxSuggestions = 5

func shortID(id string) string {
	const limit = 8
	if len(id) <= limit {
		return id
	}
	return id[:limit]
}

// findConversation resolves a full ID, a unique ID prefix or a unique
// subject substring.
func findConversation(ctx context.Context, client support.Client, idOrPrefix string) (support.Conversation, error) {
	if strings.TrimSpace(idOrPrefix) == "" {
		return support.Conversation{}, errors.New("conversation ID required")
	}

	conv, err := client.Get(ctx, idOrPrefix)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, support.ErrConversationNotFound) {
		return support.Conversation{}, fmt.Errorf("failed to get conversation: %w", err)
	}

	convs, err := client.List(ctx)
	if err != nil {
		return support.Conversation{}, fmt.Errorf("failed to list conversations: %w", err)
	}

	matches := matchConversations(convs, idOrPrefix)
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return support.Conversation{}, fmt.Errorf("conversation '%s' is ambiguous; matches: %s (use a longer prefix or full ID)", idOrPrefix, formatConversationMatches(matches))
	}
	if len(convs) == 0 {
		return support.Conversation{}, &PreflightError{
			Message:  fmt.Sprintf("conversation '%s' not found (inbox is empty)", idOrPrefix),
			NextStep: "replydesk conversations",
		}
	}
	return support.Conversation{}, &PreflightError{
		Message:  fmt.Sprintf("conversation '%s' not found", idOrPrefix),
		Hint:     fmt.Sprintf("example input: '%s'", shortID(convs[0].ID)),
		NextStep: "replydesk conversations",
	}
}

// matchConversations prefers ID prefix matches; subject matches are only
// used when no ID matches.
func matchConversations(convs []support.Conversation, query string) []support.Conversation {
	var byID, bySubject []support.Conversation
	lower := strings.ToLower(query)
	for _, c := range convs {
		switch {
		case strings.HasPrefix(c.ID, query):
			byID = append(byID, c)
		case strings.Contains(strings.ToLower(c.Subject), lower):
			bySubject = append(bySubject, c)
		}
	}
	if len(byID) > 0 {
		return byID
	}
	return bySubject
}

func formatConversationMatches(convs []support.Conversation) string {
	labels := make([]string, 0, len(convs))
	for _, c := range convs {
		labels = append(labels, fmt.Sprintf("%s (%s)", shortID(c.ID), c.Subject))
	}
	sort.Strings(labels)
	if len(labels) > maxSuggestions {
		labels = append(labels[:maxSuggestions], fmt.Sprintf("+%d more", len(convs)-maxSuggestions))
	}
	return strings.Join(labels, ", ")
}
