package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/replydesk/internal/composer"
	"github.com/tOgg1/replydesk/internal/markup"
	"github.com/tOgg1/replydesk/internal/tui/styles"
)

const (
	headerHeight = 1
	footerHeight = 1
	// border plus horizontal padding on each side of a panel
	panelChromeX = 4
	panelChromeY = 2
)

type layoutBox struct {
	listWidth      int
	threadWidth    int
	bodyHeight     int
	composerHeight int
	threadHeight   int
}

func (m *Model) box() layoutBox {
	cols := styles.ComputeColumnWidths(m.width)
	body := max(m.height-headerHeight-footerHeight, 0)
	rows := min(max(body/3, minComposerRows), maxComposerRows)
	composerOuter := rows + panelChromeY
	return layoutBox{
		listWidth:      cols.List,
		threadWidth:    cols.Thread,
		bodyHeight:     body,
		composerHeight: composerOuter,
		threadHeight:   max(body-composerOuter, panelChromeY),
	}
}

// layout sizes the composer and tells it where its text area sits on screen
// so anchored popups land next to the caret.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	b := m.box()
	m.composer.SetSize(b.threadWidth-panelChromeX, b.composerHeight-panelChromeY)
	x := panelChromeX / 2
	if b.listWidth > 0 {
		x += b.listWidth + styles.LayoutGap
	}
	m.composer.SetOrigin(x, headerHeight+b.threadHeight+1)
}

// composerRect is the composer panel's screen region, border included.
func (m *Model) composerRect() rect {
	b := m.box()
	x := 0
	if b.listWidth > 0 {
		x = b.listWidth + styles.LayoutGap
	}
	return rect{x: x, y: headerHeight + b.threadHeight, w: b.threadWidth, h: b.composerHeight}
}

func (m *Model) threadHeight() int {
	return max(m.box().threadHeight-panelChromeY, 1)
}

func (m *Model) renderHeader() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Base.Foreground)).
		Background(lipgloss.Color(m.theme.Chrome.Header)).
		Bold(true).
		Padding(0, 1)

	left := "replydesk"
	center := ""
	if conv, ok := m.currentConversation(); ok {
		center = conv.Subject
		if conv.Customer != "" {
			center += " · " + conv.Customer
		}
	}
	filter := m.filter
	if filter == "" {
		filter = "all"
	}
	right := fmt.Sprintf("%s (%d)", filter, len(m.visible()))
	line := joinHeader(left, center, right, max(m.width-2, 0))
	return style.Width(max(0, m.width)).Render(line)
}

func (m *Model) renderFooter() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Base.Foreground)).
		Background(lipgloss.Color(m.theme.Chrome.Footer)).
		Padding(0, 1)

	text := "↑/↓ select  enter open  f filter  s status  r refresh  ? help  q quit"
	if m.focus == paneComposer {
		text = "esc inbox  pgup/pgdn scroll  ctrl+s send  alt+s send & resolve  / canned"
	}
	if m.toast.text != "" {
		color := m.theme.Base.Accent
		if m.toast.err {
			color = m.theme.Base.Error
		}
		text = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(m.toast.text)
	}
	return style.Width(max(0, m.width)).Render(truncateVis(text, max(0, m.width-2)))
}

func (m *Model) renderBody(height int) string {
	if height <= 0 {
		return ""
	}
	b := m.box()
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderThreadPanel(b.threadWidth, b.threadHeight),
		m.renderComposerPanel(b.threadWidth, b.composerHeight),
	)
	if b.listWidth <= 0 {
		return right
	}
	left := m.renderInboxPanel(b.listWidth, height)
	gap := strings.Repeat(" ", styles.LayoutGap)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, gap, right)
}

func (m *Model) panel(content string, w, h int, focused bool) string {
	innerW := max(w-panelChromeX, 1)
	innerH := max(h-panelChromeY, 1)
	lines := splitLinesN(content, innerH)
	for i, ln := range lines {
		lines[i] = truncateVis(ln, innerW)
	}
	return styles.PanelStyle(m.theme, focused).
		Width(w - 2).
		Height(innerH).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) renderInboxPanel(w, h int) string {
	innerW := max(w-panelChromeX, 1)
	innerH := max(h-panelChromeY, 1)
	visible := m.visible()
	if len(visible) == 0 {
		msg := "No conversations"
		if !m.loaded {
			msg = "Loading…"
		}
		return m.panel(m.messages.Timestamp.Render(msg), w, h, m.focus == paneInbox)
	}

	selected := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Base.Background)).
		Background(lipgloss.Color(m.theme.Chrome.SelectedItem)).
		Bold(true)
	perItem := 2
	top := 0
	if fit := innerH / perItem; fit > 0 && m.selected >= fit {
		top = m.selected - fit + 1
	}

	lines := make([]string, 0, innerH)
	for i := top; i < len(visible) && len(lines) < innerH; i++ {
		conv := visible[i]
		marker := "  "
		if conv.ID == m.current {
			marker = "▸ "
		}
		title := conv.Subject
		if title == "" {
			title = conv.ID
		}
		if _, ok := m.drafts[conv.ID]; ok {
			title = "✎ " + title
		}
		badge := m.messages.RenderStatus(conv.Status)
		head := marker + truncateVis(title, max(innerW-lipgloss.Width(badge)-3, 1))
		if i == m.selected && m.focus == paneInbox {
			head = selected.Render(head)
		}
		lines = append(lines, head+" "+badge)

		preview := conv.Customer
		if p := markup.PlainText(conv.Preview()); p != "" {
			preview += ": " + p
		}
		lines = append(lines, "  "+m.messages.Timestamp.Render(truncateVis(preview, max(innerW-2, 1))))
	}
	return m.panel(strings.Join(lines, "\n"), w, h, m.focus == paneInbox)
}

func (m *Model) renderThreadPanel(w, h int) string {
	conv, ok := m.currentConversation()
	if !ok {
		return m.panel(m.messages.Timestamp.Render("Select a conversation"), w, h, false)
	}
	innerW := max(w-panelChromeX, 1)
	innerH := max(h-panelChromeY, 1)

	var lines []string
	for i, msg := range conv.Messages {
		if i > 0 {
			lines = append(lines, "")
		}
		var ts time.Time
		if m.cfg.ShowTimestamps {
			ts = msg.CreatedAt
		}
		lines = append(lines, m.messages.RenderHeader(msg.Author, msg.FromAgent, ts))
		body := m.messages.RenderBody(markup.PlainText(msg.Body), msg.FromAgent, innerW)
		lines = append(lines, strings.Split(body, "\n")...)
	}

	// Scroll is measured from the newest message.
	scroll := min(m.threadScroll, max(len(lines)-innerH, 0))
	end := len(lines) - scroll
	start := max(end-innerH, 0)
	return m.panel(strings.Join(lines[start:end], "\n"), w, h, false)
}

func (m *Model) renderComposerPanel(w, h int) string {
	focused := m.focus == paneComposer
	if !m.composer.Mounted() {
		return m.panel("", w, h, focused)
	}
	style := styles.PanelStyle(m.theme, focused)
	return style.Width(w - 2).Height(max(h-panelChromeY, 1)).Render(m.composer.View())
}

func (m *Model) renderHelp() string {
	inbox := inboxKeys()
	groups := append([][]key.Binding{inbox}, m.composerKeys().FullHelp()...)

	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Base.Accent))
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Base.Foreground))
	h.Styles.FullSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Base.Muted))

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Chrome.Header)).Render("Help")
	dismiss := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Base.Muted)).Render("Dismiss: ? or Esc")
	content := lipgloss.JoinVertical(lipgloss.Left, title, "", h.FullHelpView(groups), "", dismiss)

	return lipgloss.NewStyle().
		Border(styles.BorderStyleForTheme(m.theme)).
		BorderForeground(lipgloss.Color(m.theme.Base.Border)).
		Padding(1, 2).
		Render(content)
}

func (m *Model) composerKeys() composer.KeyMap {
	if m.cfg.Composer.KeyMap.Send.Keys() != nil {
		return m.cfg.Composer.KeyMap
	}
	return composer.DefaultKeyMap()
}

func inboxKeys() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "select")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle status")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to inbox")),
		key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

func joinHeader(left, center, right string, width int) string {
	left = strings.TrimSpace(left)
	center = strings.TrimSpace(center)
	right = strings.TrimSpace(right)
	if width <= 0 {
		return left
	}

	space := width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if space < 2 {
		line := left
		if right != "" {
			line = left + "  " + right
		}
		return truncateVis(line, width)
	}

	leftGap := space / 2
	rightGap := space - leftGap
	return truncateVis(left+strings.Repeat(" ", leftGap)+center+strings.Repeat(" ", rightGap)+right, width)
}
