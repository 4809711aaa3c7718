package canned

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tOgg1/replydesk/internal/logging"
)

// HTTPSource lists canned messages from the support backend's REST API.
type HTTPSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPSource creates a REST source rooted at baseURL.
func NewHTTPSource(baseURL, token string, client *http.Client) (*HTTPSource, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("canned http source: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("canned http source: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPSource{baseURL: baseURL, token: token, client: client}, nil
}

type listEnvelope struct {
	Data           []Message `json:"data"`
	CannedMessages []Message `json:"canned_messages"`
}

// List implements Source. The backend may answer with a bare array or an
// envelope keyed by "data" or "canned_messages".
func (s *HTTPSource) List(ctx context.Context, opts ListOptions) ([]Message, error) {
	q := url.Values{}
	q.Set("is_active", strconv.FormatBool(opts.IsActive))
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	endpoint := s.baseURL + "/canned_messages?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	log := logging.Component("canned")
	log.Debug().Str("url", logging.RedactURL(endpoint)).Msg("listing canned messages")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list canned messages: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read canned messages: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list canned messages: unexpected status %d", resp.StatusCode)
	}

	var items []Message
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode canned messages: %w", err)
		}
	} else {
		var env listEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode canned messages: %w", err)
		}
		items = env.Data
		if items == nil {
			items = env.CannedMessages
		}
	}
	return filterActive(items, opts), nil
}
