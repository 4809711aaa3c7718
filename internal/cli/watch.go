// Package cli provides the watch/streaming functionality for CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/logging"
	"github.com/tOgg1/replydesk/internal/markup"
	"github.com/tOgg1/replydesk/internal/support"
)

// Inbox event types.
const (
	EventConversationNew = "conversation.new"
	EventMessageNew      = "message.new"
	EventStatusChanged   = "conversation.status"
)

// InboxEvent is one line of watch output.
type InboxEvent struct {
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	Subject        string    `json:"subject,omitempty"`
	Status         string    `json:"status,omitempty"`
	OldStatus      string    `json:"old_status,omitempty"`
	Author         string    `json:"author,omitempty"`
	FromAgent      bool      `json:"from_agent,omitempty"`
	Text           string    `json:"text,omitempty"`
}

// StreamConfig configures inbox streaming behavior.
type StreamConfig struct {
	// PollInterval is how often to re-list conversations.
	PollInterval time.Duration

	// IncludeExisting emits events for the inbox as first seen.
	IncludeExisting bool

	// CustomerOnly drops agent messages.
	CustomerOnly bool
}

// DefaultStreamConfig returns sensible defaults for streaming.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		PollInterval: 5 * time.Second,
	}
}

type convSnapshot struct {
	status   string
	messages int
}

// reloader is implemented by clients backed by a file other processes write.
type reloader interface {
	Load() error
}

// InboxStreamer polls the support backend and writes changes as JSONL.
type InboxStreamer struct {
	client support.Client
	out    io.Writer
	config StreamConfig
	seen   map[string]convSnapshot
	now    func() time.Time
}

// NewInboxStreamer creates a new inbox streamer.
func NewInboxStreamer(client support.Client, out io.Writer, config StreamConfig) *InboxStreamer {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	return &InboxStreamer{
		client: client,
		out:    out,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Stream writes inbox events until the context is cancelled.
// Returns nil on graceful shutdown, error otherwise.
func (s *InboxStreamer) Stream(ctx context.Context) error {
	logger := logging.Component("watch")
	if err := s.step(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	logger.Debug().Dur("interval", s.config.PollInterval).Msg("watching inbox")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.step(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn().Err(err).Msg("poll failed")
			}
		}
	}
}

func (s *InboxStreamer) step(ctx context.Context) error {
	events, err := s.poll(ctx)
	if err != nil {
		return fmt.Errorf("failed to poll conversations: %w", err)
	}
	for _, event := range events {
		if err := s.writeEvent(event); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

// poll lists conversations and diffs them against the last snapshot. The
// first poll only records the baseline unless IncludeExisting is set.
func (s *InboxStreamer) poll(ctx context.Context) ([]InboxEvent, error) {
	if r, ok := s.client.(reloader); ok {
		if err := r.Load(); err != nil {
			return nil, err
		}
	}
	convs, err := s.client.List(ctx)
	if err != nil {
		return nil, err
	}
	first := s.seen == nil
	next := make(map[string]convSnapshot, len(convs))
	var events []InboxEvent
	for _, c := range convs {
		next[c.ID] = convSnapshot{status: c.Status, messages: len(c.Messages)}
		if first && !s.config.IncludeExisting {
			continue
		}
		prev, known := s.seen[c.ID]
		if !known {
			events = append(events, InboxEvent{
				Type:           EventConversationNew,
				Timestamp:      s.now(),
				ConversationID: c.ID,
				Subject:        c.Subject,
				Status:         c.Status,
			})
		}
		for _, m := range c.Messages[min(prev.messages, len(c.Messages)):] {
			if s.config.CustomerOnly && m.FromAgent {
				continue
			}
			events = append(events, InboxEvent{
				Type:           EventMessageNew,
				Timestamp:      m.CreatedAt,
				ConversationID: c.ID,
				Subject:        c.Subject,
				Author:         m.Author,
				FromAgent:      m.FromAgent,
				Text:           markup.PlainText(m.Body),
			})
		}
		if known && prev.status != c.Status {
			events = append(events, InboxEvent{
				Type:           EventStatusChanged,
				Timestamp:      s.now(),
				ConversationID: c.ID,
				Subject:        c.Subject,
				Status:         c.Status,
				OldStatus:      prev.status,
			})
		}
	}
	s.seen = next
	return events, nil
}

// writeEvent writes a single event as JSONL.
func (s *InboxStreamer) writeEvent(event InboxEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}

var (
	watchInterval     time.Duration
	watchExisting     bool
	watchCustomerOnly bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", DefaultStreamConfig().PollInterval, "poll interval")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "emit events for the current inbox first")
	watchCmd.Flags().BoolVar(&watchCustomerOnly, "customer-only", false, "only report customer messages")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream inbox changes as JSONL",
	Long:  "Poll the support backend and print new conversations, messages and status changes as JSON lines.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeSupport, err := openSupport(GetConfig())
		if err != nil {
			return err
		}
		defer func() { _ = closeSupport() }()

		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		config := DefaultStreamConfig()
		config.PollInterval = watchInterval
		config.IncludeExisting = watchExisting
		config.CustomerOnly = watchCustomerOnly
		return NewInboxStreamer(client, cmd.OutOrStdout(), config).Stream(ctx)
	},
}
