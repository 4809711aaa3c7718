package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tOgg1/replydesk/internal/logging"
)

const maxResponseBytes = 4 << 20

// HTTPClient calls the reply-assist REST API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a REST client rooted at baseURL.
func NewHTTPClient(baseURL, token string, client *http.Client) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrUnavailable)
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPClient{baseURL: baseURL, token: token, client: client}, nil
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	log := logging.Component("ai")
	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("ai request finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		detail := apiErr.Message
		if detail == "" {
			detail = apiErr.Error
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway {
			return fmt.Errorf("%s: %w: %s", path, ErrUnavailable, detail)
		}
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, detail)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Translate implements Service.
func (c *HTTPClient) Translate(ctx context.Context, text, language string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	var out struct {
		TranslatedText string `json:"translated_text"`
	}
	in := map[string]string{"text": text, "language": language}
	if err := c.do(ctx, http.MethodPost, "/ai/translate", in, &out); err != nil {
		return "", err
	}
	return out.TranslatedText, nil
}

// Revise implements Service.
func (c *HTTPClient) Revise(ctx context.Context, text, formatID string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	var out struct {
		RevisedText string `json:"revised_text"`
	}
	in := map[string]string{"text": text, "format": formatID}
	if err := c.do(ctx, http.MethodPost, "/ai/revise", in, &out); err != nil {
		return "", err
	}
	return out.RevisedText, nil
}

// SmartReply implements Service.
func (c *HTTPClient) SmartReply(ctx context.Context, req SmartReplyRequest) (Review, error) {
	if err := requireText(req.AgentMessage); err != nil {
		return Review{}, err
	}
	var out Review
	if err := c.do(ctx, http.MethodPost, "/ai/smart_reply", req, &out); err != nil {
		return Review{}, err
	}
	if out.OriginalText == "" {
		out.OriginalText = req.AgentMessage
	}
	return out, nil
}

// Formats implements Service. The list may come bare or under "formats".
func (c *HTTPClient) Formats(ctx context.Context) ([]Format, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/ai/formats", nil, &raw); err != nil {
		return nil, err
	}
	var formats []Format
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &formats); err != nil {
			return nil, fmt.Errorf("decode formats: %w", err)
		}
		return formats, nil
	}
	var env struct {
		Formats []Format `json:"formats"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode formats: %w", err)
	}
	return env.Formats, nil
}

// Generate implements Service.
func (c *HTTPClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var out struct {
		Text  string `json:"text"`
		Reply string `json:"reply"`
	}
	if err := c.do(ctx, http.MethodPost, "/ai/generate", req, &out); err != nil {
		return "", err
	}
	if out.Text != "" {
		return out.Text, nil
	}
	return out.Reply, nil
}
