// Package speech provides continuous speech-to-text engines for dictating
// replies.
package speech

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrUnsupported is returned when no recognizer is available.
	ErrUnsupported = errors.New("speech recognition unsupported")
	// ErrRunning is returned by Start while a session is active.
	ErrRunning = errors.New("speech recognition already running")
)

// Segment is a piece of recognized speech. Interim segments may be revised
// by later ones; final segments are settled.
type Segment struct {
	Text  string
	Final bool
}

// Event is delivered to a Handler. Exactly one Done event ends a session.
type Event struct {
	Segment Segment
	Err     error
	Done    bool
}

// Handler receives recognition events. It is called from the engine's own
// goroutine and must not block.
type Handler func(Event)

// Engine is a continuous recognizer.
type Engine interface {
	Available() bool
	Start(ctx context.Context, h Handler) error
	Stop() error
}

// None is the engine used when no recognizer is configured.
type None struct{}

func (None) Available() bool { return false }

func (None) Start(context.Context, Handler) error { return ErrUnsupported }

func (None) Stop() error { return nil }

type jsonLine struct {
	Text    string `json:"text"`
	Final   bool   `json:"final"`
	IsFinal bool   `json:"is_final"`
}

// ParseLine decodes one line of recognizer output. Accepted forms are JSON
// objects ({"text": "...", "final": true}), "partial: text" and
// "final: text". Any other non-empty line is a final segment.
func ParseLine(line string) (Segment, bool) {
	line = strings.TrimSpace(strings.TrimRight(line, "\r"))
	if line == "" {
		return Segment{}, false
	}
	if strings.HasPrefix(line, "{") {
		var v jsonLine
		if err := json.Unmarshal([]byte(line), &v); err == nil {
			text := strings.TrimSpace(v.Text)
			if text == "" {
				return Segment{}, false
			}
			return Segment{Text: text, Final: v.Final || v.IsFinal}, true
		}
	}
	lower := strings.ToLower(line)
	for _, p := range []struct {
		prefix string
		final  bool
	}{{"partial:", false}, {"interim:", false}, {"final:", true}} {
		if strings.HasPrefix(lower, p.prefix) {
			text := strings.TrimSpace(line[len(p.prefix):])
			if text == "" {
				return Segment{}, false
			}
			return Segment{Text: text, Final: p.final}, true
		}
	}
	return Segment{Text: line, Final: true}, true
}
