package composer

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/replydesk/internal/markup"
)

// FormatAction is a toolbar formatting command.
type FormatAction int

const (
	FormatBold FormatAction = iota
	FormatItalic
	FormatUnderline
	FormatBulletList
	FormatNumberedList
	FormatLink
)

func (a FormatAction) String() string {
	switch a {
	case FormatBold:
		return "bold"
	case FormatItalic:
		return "italic"
	case FormatUnderline:
		return "underline"
	case FormatBulletList:
		return "bullet list"
	case FormatNumberedList:
		return "numbered list"
	case FormatLink:
		return "link"
	}
	return "unknown"
}

func (a FormatAction) inlineStyle() (markup.Style, bool) {
	switch a {
	case FormatBold:
		return markup.Bold, true
	case FormatItalic:
		return markup.Italic, true
	case FormatUnderline:
		return markup.Underline, true
	}
	return 0, false
}

// ExecFormat applies an inline style or list toggle to the selection. On a
// bare caret an inline style becomes pending and applies to the next typed
// text. Links need a target and go through InsertLink.
func (b *Buffer) ExecFormat(a FormatAction) bool {
	if style, ok := a.inlineStyle(); ok {
		if b.sel.Collapsed() {
			b.pending ^= style
			return true
		}
		b.checkpoint(editNone, b.sel.Start())
		b.breakCoalescing()
		b.doc.ToggleStyle(b.sel.Start(), b.sel.End(), style)
		return true
	}

	var kind markup.ListKind
	switch a {
	case FormatBulletList:
		kind = markup.BulletList
	case FormatNumberedList:
		kind = markup.NumberedList
	default:
		return false
	}
	b.checkpoint(editNone, b.sel.Start())
	b.breakCoalescing()
	from, to := b.doc.ToggleList(b.sel.Start(), b.sel.End(), kind)
	if b.sel.Anchor <= b.sel.Head {
		b.sel = Selection{Anchor: from, Head: to}
	} else {
		b.sel = Selection{Anchor: to, Head: from}
	}
	b.pending = 0
	return true
}

// InsertFragment places a styled fragment at the caret, replacing the
// selection, as one undo step.
func (b *Buffer) InsertFragment(frag *markup.Document) {
	if frag == nil || frag.Len() == 0 {
		return
	}
	start, end := b.sel.Start(), b.sel.End()
	b.checkpoint(editNone, start)
	b.breakCoalescing()
	b.doc.Delete(start, end)

	runes := frag.Runes()
	at := start
	for _, span := range frag.Spans() {
		text := string(runes[span.Start:span.End])
		if span.Href != "" {
			at += b.doc.InsertLink(at, text, span.Href, span.Style)
		} else {
			at += b.doc.Insert(at, text, span.Style)
		}
	}
	b.sel = caretAt(at)
	b.pending = 0
}

// InsertLink inserts text linked to href at the caret. Empty text shows the
// href itself.
func (b *Buffer) InsertLink(text, href string) {
	if strings.TrimSpace(text) == "" {
		text = href
	}
	frag := &markup.Document{}
	frag.InsertLink(0, text, href, 0)
	b.InsertFragment(frag)
}

// applyFormat runs a formatting primitive with the selection preserved
// around it. The user-action flag stays up until the settle tick, when the
// resulting selection is saved and the content propagated.
func (m *Model) applyFormat(fn func(*Buffer)) tea.Cmd {
	m.buf.SaveSelection()
	m.buf.Focus()
	m.buf.RestoreSelection()
	fn(m.buf)
	m.userAction = true
	return m.settle.schedule()
}

func (m *Model) settleFormat() tea.Cmd {
	m.buf.SaveSelection()
	m.userAction = false
	m.sync.Propagate(m.buf.HTML(), m.buf.Len())
	m.ensureCaretVisible()
	return m.detect.schedule()
}

// Format applies a formatting action from outside the key map, e.g. a
// toolbar click. Link opens the link dialog.
func (m *Model) Format(a FormatAction) tea.Cmd {
	if !m.mounted || m.review.Active() {
		return nil
	}
	if a == FormatLink {
		return m.openLinkDialog()
	}
	return m.applyFormat(func(b *Buffer) { b.ExecFormat(a) })
}
