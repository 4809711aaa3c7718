package composer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/tOgg1/replydesk/internal/canned"
	"github.com/tOgg1/replydesk/internal/tui/styles"
)

// Anchor is a screen-absolute cell.
type Anchor struct {
	Top  int
	Left int
}

// SlashState is the observable state of the canned-reply menu.
type SlashState struct {
	Active        bool
	Query         string
	Anchor        Anchor
	SelectedIndex int
}

type slashMenu struct {
	state SlashState
	match SlashMatch
	items []canned.Message
	limit int
}

func (s *slashMenu) open(match SlashMatch, anchor Anchor, catalog canned.Catalog) {
	items := catalog.Filter(match.Query, s.limit)
	if !s.state.Active || !sameMessages(items, s.items) {
		s.state.SelectedIndex = 0
	}
	s.items = items
	s.match = match
	s.state.Active = true
	s.state.Query = match.Query
	s.state.Anchor = anchor
}

func (s *slashMenu) close() {
	limit := s.limit
	*s = slashMenu{limit: limit}
}

func (s *slashMenu) move(delta int) {
	n := len(s.items)
	if n == 0 {
		s.state.SelectedIndex = 0
		return
	}
	s.state.SelectedIndex = ((s.state.SelectedIndex+delta)%n + n) % n
}

func (s *slashMenu) selected() (canned.Message, bool) {
	if len(s.items) == 0 {
		return canned.Message{}, false
	}
	return s.items[clampInt(s.state.SelectedIndex, 0, len(s.items)-1)], true
}

func sameMessages(a, b []canned.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

const (
	menuWidth     = 48
	menuBodyWidth = menuWidth - 4
)

func (s *slashMenu) view(st styles.ComposerStyles) string {
	lines := make([]string, 0, len(s.items)+1)
	if len(s.items) == 0 {
		lines = append(lines, st.Muted.Render(fmt.Sprintf("No canned replies match %q", s.state.Query)))
	}
	for i, item := range s.items {
		label := item.Title
		if item.Shortcut != "" {
			label = "/" + item.Shortcut + "  " + label
		}
		label = runewidth.Truncate(label, menuBodyWidth, "…")
		if i == s.state.SelectedIndex {
			lines = append(lines, st.MenuSelected.Width(menuBodyWidth).Render(label))
			continue
		}
		line := st.MenuItem.Render(label)
		preview := strings.Join(strings.Fields(item.Body), " ")
		if rest := menuBodyWidth - runewidth.StringWidth(label) - 2; rest > 8 && preview != "" {
			line += "  " + st.Muted.Render(runewidth.Truncate(preview, rest, "…"))
		}
		lines = append(lines, line)
	}
	return st.Popup.Width(menuWidth - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// detectSlash re-evaluates the trigger at the caret once typing settles.
func (m *Model) detectSlash() {
	if !m.buf.Focused() || !m.buf.Selection().Collapsed() || m.review.Active() || m.link.active {
		m.closeMenu()
		return
	}
	match, ok := DetectSlash(m.buf.Document().Runes(), m.buf.Caret())
	if !ok {
		m.closeMenu()
		return
	}
	m.menu.open(match, m.caretAnchor(), m.catalog)
}

func (m *Model) closeMenu() {
	m.menu.close()
}

// caretAnchor is the screen cell one row below the caret.
func (m *Model) caretAnchor() Anchor {
	text := m.buf.Document().Runes()
	rows := layoutRows(text, m.textWidth())
	row, col := caretCell(text, rows, m.buf.Caret())
	return Anchor{
		Top:  m.originY + (row - m.scroll) + 1,
		Left: m.originX + col,
	}
}

// handleMenuKey consumes navigation keys while the menu is open.
func (m *Model) handleMenuKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "down", "ctrl+n":
		m.menu.move(1)
		return nil, true
	case "up", "ctrl+p":
		m.menu.move(-1)
		return nil, true
	case "enter", "tab":
		return m.commitMenu(), true
	case "esc":
		m.closeMenu()
		return nil, true
	}
	return nil, false
}

// commitMenu swaps the trigger token for the highlighted canned reply.
func (m *Model) commitMenu() tea.Cmd {
	item, ok := m.menu.selected()
	match := m.menu.match
	m.closeMenu()
	if !ok {
		return nil
	}
	m.userAction = true
	if start, end, found := triggerRange(m.buf.Document().Runes(), match); found {
		m.buf.ReplaceRange(start, end, item.Body)
	} else {
		m.buf.AppendText(item.Body)
	}
	m.buf.CaretToEnd()
	m.userAction = false

	log := m.log()
	log.Debug().Str("canned_id", item.ID).Msg("canned reply inserted")
	m.ensureCaretVisible()
	return m.sync.Input(m.buf.HTML(), m.buf.Len())
}
