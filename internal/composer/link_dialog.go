package composer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/replydesk/internal/tui/styles"
)

// NormalizeLink validates a link target typed by the agent. A missing scheme
// means https. Only absolute http(s) and mailto links are accepted.
func NormalizeLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("link url is required")
	}
	if !strings.HasPrefix(strings.ToLower(raw), "mailto:") && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid link: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("invalid link %q: missing host", raw)
		}
	case "mailto":
		if u.Opaque == "" {
			return "", fmt.Errorf("invalid link %q: missing address", raw)
		}
	default:
		return "", fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}
	return u.String(), nil
}

type linkField int

const (
	linkFieldURL linkField = iota
	linkFieldText
)

type linkDialog struct {
	active   bool
	focus    linkField
	url      textinput.Model
	text     textinput.Model
	selected string
	err      string
}

func newLinkDialog() linkDialog {
	u := textinput.New()
	u.Prompt = "URL  "
	u.Placeholder = "https://"
	u.CharLimit = 2048
	t := textinput.New()
	t.Prompt = "Text "
	t.CharLimit = 512
	return linkDialog{url: u, text: t}
}

func (d *linkDialog) open(selected string) tea.Cmd {
	d.active = true
	d.focus = linkFieldURL
	d.selected = selected
	d.err = ""
	d.url.SetValue("")
	d.text.SetValue("")
	d.text.Placeholder = selected
	if strings.TrimSpace(selected) == "" {
		d.text.Placeholder = "defaults to the URL"
	}
	d.text.Blur()
	return d.url.Focus()
}

func (d *linkDialog) close() {
	d.active = false
	d.err = ""
	d.url.Blur()
	d.text.Blur()
}

type linkOutcome int

const (
	linkEditing linkOutcome = iota
	linkCancelled
	linkSubmitted
)

// handleKey returns linkSubmitted with the normalized href and the display
// text when the dialog is confirmed.
func (d *linkDialog) handleKey(msg tea.KeyMsg) (linkOutcome, string, string, tea.Cmd) {
	switch msg.String() {
	case "esc":
		d.close()
		return linkCancelled, "", "", nil
	case "tab", "shift+tab", "up", "down":
		if d.focus == linkFieldURL {
			d.focus = linkFieldText
			d.url.Blur()
			return linkEditing, "", "", d.text.Focus()
		}
		d.focus = linkFieldURL
		d.text.Blur()
		return linkEditing, "", "", d.url.Focus()
	case "enter":
		href, err := NormalizeLink(d.url.Value())
		if err != nil {
			d.err = err.Error()
			return linkEditing, "", "", nil
		}
		text := strings.TrimSpace(d.text.Value())
		if text == "" {
			text = d.selected
		}
		if strings.TrimSpace(text) == "" {
			text = href
		}
		d.close()
		return linkSubmitted, href, text, nil
	}

	var cmd tea.Cmd
	if d.focus == linkFieldURL {
		d.url, cmd = d.url.Update(msg)
	} else {
		d.text, cmd = d.text.Update(msg)
	}
	d.err = ""
	return linkEditing, "", "", cmd
}

func (d *linkDialog) view(st styles.ComposerStyles) string {
	lines := []string{
		st.Title.Render("Insert link"),
		d.url.View(),
		d.text.View(),
	}
	if d.err != "" {
		lines = append(lines, st.Error.Render(d.err))
	}
	lines = append(lines, st.Muted.Render("enter insert · tab switch field · esc cancel"))
	return st.Popup.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) openLinkDialog() tea.Cmd {
	m.buf.Blur()
	m.closeMenu()
	return m.link.open(m.buf.SelectedText())
}

func (m *Model) handleLinkKey(msg tea.KeyMsg) tea.Cmd {
	outcome, href, text, cmd := m.link.handleKey(msg)
	switch outcome {
	case linkEditing:
		return cmd
	case linkCancelled:
		m.buf.Focus()
		m.buf.RestoreSelection()
		return nil
	}
	return m.applyFormat(func(b *Buffer) { b.InsertLink(text, href) })
}
