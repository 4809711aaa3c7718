package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const quotePrefix = "│ "

// MessageStyles contains pre-built styles for conversation messages.
type MessageStyles struct {
	Theme   Theme
	Authors *AuthorColorMapper

	HeaderBase lipgloss.Style
	Agent      lipgloss.Style
	Timestamp  lipgloss.Style
	Body       lipgloss.Style
	Quote      lipgloss.Style
}

// NewMessageStyles builds a reusable style set for messages.
func NewMessageStyles(theme Theme, mapper *AuthorColorMapper) MessageStyles {
	if mapper == nil {
		mapper = NewAuthorColorMapperWithPalette(theme.AuthorPalette)
	}
	return MessageStyles{
		Theme:      theme,
		Authors:    mapper,
		HeaderBase: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Agent:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Agent)).Bold(true),
		Timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)),
		Body:       lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Quote:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Agent)).Bold(true),
	}
}

// RenderHeader renders a message header with author and timestamp.
func (s MessageStyles) RenderHeader(author string, fromAgent bool, ts time.Time) string {
	name := strings.TrimSpace(author)
	if name == "" {
		name = "unknown"
	}
	nameText := s.Authors.Foreground(name).Render(name)
	if fromAgent {
		nameText = s.Agent.Render(name)
	}
	timeText := ""
	if !ts.IsZero() {
		timeText = " " + s.Timestamp.Render(ts.Local().Format("Jan 2 15:04"))
	}
	return s.HeaderBase.Render(nameText + timeText)
}

// RenderBody renders wrapped body text. Agent replies are drawn with a
// vertical bar so they stand apart from customer messages.
func (s MessageStyles) RenderBody(body string, fromAgent bool, width int) string {
	if !fromAgent {
		return s.Body.Render(WrapText(body, width))
	}
	lines := strings.Split(WrapText(body, max(width-lipgloss.Width(quotePrefix), 1)), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, s.Quote.Render(quotePrefix)+s.Body.Render(line))
	}
	return strings.Join(out, "\n")
}

// RenderStatus renders a [status] badge.
func (s MessageStyles) RenderStatus(status string) string {
	if status == "" {
		return ""
	}
	return s.Theme.StatusStyle(status).Render("[" + status + "]")
}

// WrapText word-wraps every paragraph of body to width.
func WrapText(body string, width int) string {
	if width <= 0 {
		return body
	}
	parts := strings.Split(body, "\n")
	for i := range parts {
		parts[i] = wordwrap.String(parts[i], width)
	}
	return strings.Join(parts, "\n")
}
