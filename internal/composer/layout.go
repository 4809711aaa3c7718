package composer

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/tOgg1/replydesk/internal/markup"
	"github.com/tOgg1/replydesk/internal/tui/styles"
)

// visualRow is a soft-wrapped screen row of the buffer, as a rune range
// excluding any terminating newline.
type visualRow struct {
	start int
	end   int
}

// layoutRows wraps text at width cells. A row that fills the width exactly
// at the end of the text gets an empty row after it for the caret.
func layoutRows(text []rune, width int) []visualRow {
	width = max(width, 1)
	rows := make([]visualRow, 0, 4)
	start, w := 0, 0
	for i, r := range text {
		if r == '\n' {
			rows = append(rows, visualRow{start: start, end: i})
			start, w = i+1, 0
			continue
		}
		rw := runewidth.RuneWidth(r)
		if w+rw > width && i > start {
			rows = append(rows, visualRow{start: start, end: i})
			start, w = i, 0
		}
		w += rw
	}
	rows = append(rows, visualRow{start: start, end: len(text)})
	if w >= width {
		rows = append(rows, visualRow{start: len(text), end: len(text)})
	}
	return rows
}

// caretCell locates offset caret on screen as (row, column). On a soft wrap
// boundary the caret belongs to the start of the next row.
func caretCell(text []rune, rows []visualRow, caret int) (int, int) {
	for i, row := range rows {
		if caret < row.start || caret > row.end {
			continue
		}
		if caret == row.end && i+1 < len(rows) && rows[i+1].start == row.end {
			continue
		}
		return i, runewidth.StringWidth(string(text[row.start:caret]))
	}
	last := len(rows) - 1
	return last, runewidth.StringWidth(string(text[rows[last].start:rows[last].end]))
}

type cellLook struct {
	style    markup.Style
	link     bool
	selected bool
	caret    bool
}

func (l cellLook) render(st styles.ComposerStyles, s string) string {
	out := st.Text
	if l.link {
		out = st.Link
	}
	if l.style.Has(markup.Bold) {
		out = out.Bold(true)
	}
	if l.style.Has(markup.Italic) {
		out = out.Italic(true)
	}
	if l.style.Has(markup.Underline) {
		out = out.Underline(true)
	}
	if l.selected {
		out = out.Background(st.Selection.GetBackground())
	}
	if l.caret {
		out = out.Reverse(true)
	}
	return out.Render(s)
}

// renderRows draws rows [first, first+height) of the document with styles,
// the selection and, when focused, the caret.
func renderRows(doc *markup.Document, sel Selection, focused bool, rows []visualRow, first, height, width int, st styles.ComposerStyles) string {
	text := doc.Runes()
	lines := make([]string, 0, height)
	caretRow, _ := caretCell(text, rows, sel.Head)
	for ri := first; ri < first+height; ri++ {
		if ri >= len(rows) {
			lines = append(lines, "")
			continue
		}
		row := rows[ri]
		var b strings.Builder
		var run strings.Builder
		var look cellLook
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(look.render(st, run.String()))
				run.Reset()
			}
		}
		for i := row.start; i < row.end; i++ {
			style, href := doc.StyleAt(i)
			next := cellLook{
				style:    style,
				link:     href != "",
				selected: !sel.Collapsed() && i >= sel.Start() && i < sel.End(),
				caret:    focused && i == sel.Head && ri == caretRow,
			}
			if next != look {
				flush()
				look = next
			}
			run.WriteRune(text[i])
		}
		flush()
		if focused && ri == caretRow && sel.Head == row.end {
			b.WriteString(st.Caret.Render(" "))
		}
		lines = append(lines, lipgloss.NewStyle().MaxWidth(width+1).Render(b.String()))
	}
	return strings.Join(lines, "\n")
}
