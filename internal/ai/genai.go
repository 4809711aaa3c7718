package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGenAIModel = "gemini-2.5-flash"

// defaultFormats are offered when talking to a model directly, as there is
// no server-side catalog.
var defaultFormats = []Format{
	{ID: "formal", Name: "Formal", Description: "Polite and professional wording"},
	{ID: "friendly", Name: "Friendly", Description: "Warm, conversational wording"},
	{ID: "concise", Name: "Concise", Description: "Shorter, to the point"},
	{ID: "grammar", Name: "Fix grammar", Description: "Correct spelling and grammar only"},
}

// completer produces text for a prompt. asJSON requests a JSON response.
type completer func(ctx context.Context, system, prompt string, asJSON bool) (string, error)

// GenAIService implements Service by prompting a Gemini model directly.
type GenAIService struct {
	complete completer
}

// NewGenAIService creates a Gemini-backed service.
func NewGenAIService(ctx context.Context, apiKey, model string) (*GenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GenAI API key is required", ErrUnavailable)
	}
	if model == "" {
		model = defaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	complete := func(ctx context.Context, system, prompt string, asJSON bool) (string, error) {
		cfg := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
		if asJSON {
			cfg.ResponseMIMEType = "application/json"
		}
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		if err != nil {
			return "", fmt.Errorf("GenAI generate failed: %w", err)
		}
		return strings.TrimSpace(resp.Text()), nil
	}
	return &GenAIService{complete: complete}, nil
}

const supportSystemPrompt = "You help customer support agents write replies. " +
	"Answer with the reply text only, without quotes or commentary."

// Translate implements Service.
func (s *GenAIService) Translate(ctx context.Context, text, language string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Translate this support reply into %s, keeping its meaning and tone:\n\n%s", LanguageName(language), text)
	return s.complete(ctx, supportSystemPrompt, prompt, false)
}

// Revise implements Service.
func (s *GenAIService) Revise(ctx context.Context, text, formatID string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	style := formatID
	for _, f := range defaultFormats {
		if f.ID == formatID {
			style = f.Description
		}
	}
	prompt := fmt.Sprintf("Rewrite this support reply. Style: %s. Keep the language of the original.\n\n%s", style, text)
	return s.complete(ctx, supportSystemPrompt, prompt, false)
}

// SmartReply implements Service.
func (s *GenAIService) SmartReply(ctx context.Context, req SmartReplyRequest) (Review, error) {
	if err := requireText(req.AgentMessage); err != nil {
		return Review{}, err
	}
	var b strings.Builder
	b.WriteString("Improve the agent's reply to the customer. Respond with a JSON object with keys ")
	b.WriteString("improved_text, detected_user_language, detected_agent_language (ISO 639-1 codes), ")
	b.WriteString("was_translated (bool) and improvements (list of short strings).\n")
	if req.TargetLanguage != "" {
		fmt.Fprintf(&b, "Write the improved reply in %s.\n", LanguageName(req.TargetLanguage))
	} else {
		b.WriteString("Write the improved reply in the customer's language.\n")
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Use a %s tone.\n", req.Tone)
	}
	fmt.Fprintf(&b, "\nCustomer's last message:\n%s\n\nAgent's reply:\n%s\n", req.UserLastMessage, req.AgentMessage)

	raw, err := s.complete(ctx, supportSystemPrompt, b.String(), true)
	if err != nil {
		return Review{}, err
	}
	var review Review
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &review); err != nil {
		return Review{}, fmt.Errorf("decode smart reply: %w", err)
	}
	review.OriginalText = req.AgentMessage
	return review, nil
}

// Formats implements Service.
func (s *GenAIService) Formats(context.Context) ([]Format, error) {
	out := make([]Format, len(defaultFormats))
	copy(out, defaultFormats)
	return out, nil
}

// Generate implements Service.
func (s *GenAIService) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var b strings.Builder
	b.WriteString("Draft a helpful reply to the customer.\n")
	if req.UserLastMessage != "" {
		fmt.Fprintf(&b, "\nCustomer's last message:\n%s\n", req.UserLastMessage)
	}
	if strings.TrimSpace(req.Draft) != "" {
		fmt.Fprintf(&b, "\nBuild on the agent's notes:\n%s\n", req.Draft)
	}
	return s.complete(ctx, supportSystemPrompt, b.String(), false)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
