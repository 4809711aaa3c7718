package composer

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/tOgg1/replydesk/internal/ai"
	"github.com/tOgg1/replydesk/internal/tui/styles"
)

type pickerOption struct {
	id    string
	label string
	hint  string
}

// picker chooses the parameter of a translate or revise request.
type picker struct {
	active  bool
	kind    TransformKind
	title   string
	options []pickerOption
	index   int
}

func languageOptions() []pickerOption {
	out := make([]pickerOption, 0, len(ai.Languages))
	for _, l := range ai.Languages {
		out = append(out, pickerOption{id: l.Code, label: l.Name, hint: l.Code})
	}
	return out
}

func formatOptions(formats []ai.Format) []pickerOption {
	out := make([]pickerOption, 0, len(formats))
	for _, f := range formats {
		label := f.Name
		if label == "" {
			label = f.ID
		}
		out = append(out, pickerOption{id: f.ID, label: label, hint: f.Description})
	}
	return out
}

func (p *picker) open(kind TransformKind, title string, options []pickerOption) bool {
	if len(options) == 0 {
		return false
	}
	*p = picker{active: true, kind: kind, title: title, options: options}
	return true
}

func (p *picker) close() { *p = picker{} }

func (p *picker) move(delta int) {
	n := len(p.options)
	if n == 0 {
		return
	}
	p.index = ((p.index+delta)%n + n) % n
}

func (p *picker) current() (pickerOption, bool) {
	if !p.active || len(p.options) == 0 {
		return pickerOption{}, false
	}
	return p.options[p.index], true
}

const pickerWidth = 40

func (p *picker) view(st styles.ComposerStyles) string {
	lines := []string{st.Title.Render(p.title)}
	for i, opt := range p.options {
		label := runewidth.Truncate(opt.label, pickerWidth-4, "…")
		if i == p.index {
			lines = append(lines, st.MenuSelected.Width(pickerWidth-4).Render(label))
			continue
		}
		line := st.MenuItem.Render(label)
		if rest := pickerWidth - 6 - runewidth.StringWidth(label); rest > 4 && opt.hint != "" {
			line += "  " + st.Muted.Render(runewidth.Truncate(opt.hint, rest, "…"))
		}
		lines = append(lines, line)
	}
	lines = append(lines, st.Muted.Render("↑/↓ choose · enter apply · esc cancel"))
	return st.Popup.Width(pickerWidth - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
