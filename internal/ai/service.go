// Package ai talks to the reply-assist service: translation, revision,
// drafting and smart-reply review of agent messages.
package ai

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyInput is returned when a call needs text and got none.
	ErrEmptyInput = errors.New("ai: empty input")
	// ErrUnavailable is returned when no backend is configured or reachable.
	ErrUnavailable = errors.New("ai: service unavailable")
)

// Format is a revision style offered by the service.
type Format struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SmartReplyRequest asks for an improved version of an agent's draft.
type SmartReplyRequest struct {
	AgentMessage    string `json:"agent_message"`
	UserLastMessage string `json:"user_last_message"`
	Tone            string `json:"tone,omitempty"`
	TargetLanguage  string `json:"target_language,omitempty"`
}

// Review is the result of a smart-reply request.
type Review struct {
	OriginalText          string   `json:"original_text"`
	ImprovedText          string   `json:"improved_text"`
	DetectedUserLanguage  string   `json:"detected_user_language,omitempty"`
	DetectedAgentLanguage string   `json:"detected_agent_language,omitempty"`
	WasTranslated         bool     `json:"was_translated"`
	Improvements          []string `json:"improvements"`
}

// FallbackReview is the review shown when the service fails: the improved
// text is the original so the agent can still send it.
func FallbackReview(original string) Review {
	return Review{OriginalText: original, ImprovedText: original}
}

// GenerateRequest asks for a draft reply.
type GenerateRequest struct {
	ConversationID  string `json:"conversation_id,omitempty"`
	UserLastMessage string `json:"user_last_message,omitempty"`
	Draft           string `json:"draft,omitempty"`
}

// Service is the reply-assist API.
type Service interface {
	Translate(ctx context.Context, text, language string) (string, error)
	Revise(ctx context.Context, text, formatID string) (string, error)
	SmartReply(ctx context.Context, req SmartReplyRequest) (Review, error)
	Formats(ctx context.Context) ([]Format, error)
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Language is a translation target.
type Language struct {
	Code string
	Name string
}

// Languages are the translation targets offered to agents.
var Languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "it", Name: "Italian"},
	{Code: "nl", Name: "Dutch"},
	{Code: "ja", Name: "Japanese"},
	{Code: "zh", Name: "Chinese"},
}

// LanguageName resolves a code to its display name, or returns the code.
func LanguageName(code string) string {
	for _, l := range Languages {
		if strings.EqualFold(l.Code, code) {
			return l.Name
		}
	}
	return code
}

// Tones are the smart-reply tones offered to agents. The empty tone lets the
// service choose.
var Tones = []string{"", "professional", "friendly", "empathetic", "concise"}

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	return nil
}

// Unavailable is a Service that fails every call with ErrUnavailable.
type Unavailable struct{}

func (Unavailable) Translate(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Revise(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) SmartReply(context.Context, SmartReplyRequest) (Review, error) {
	return Review{}, ErrUnavailable
}

func (Unavailable) Formats(context.Context) ([]Format, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Generate(context.Context, GenerateRequest) (string, error) {
	return "", ErrUnavailable
}
