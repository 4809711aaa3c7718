package composer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/tOgg1/replydesk/internal/ai"
	"github.com/tOgg1/replydesk/internal/tui/styles"
)

// wordDiff diffs two texts token by token, where a token is a run of
// letters and digits, a run of spaces, or a single other rune.
func wordDiff(a, b string) []diffmatchpatch.Diff {
	index := map[string]rune{}
	var tokens []string
	encode := func(s string) []rune {
		parts := tokenize(s)
		out := make([]rune, len(parts))
		for i, p := range parts {
			r, ok := index[p]
			if !ok {
				// Private use area, so tokens never collide with real runes.
				r = rune(0xE000 + len(tokens))
				index[p] = r
				tokens = append(tokens, p)
			}
			out[i] = r
		}
		return out
	}
	ra, rb := encode(a), encode(b)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes(ra, rb, false)
	for i := range diffs {
		var sb strings.Builder
		for _, r := range diffs[i].Text {
			sb.WriteString(tokens[r-0xE000])
		}
		diffs[i].Text = sb.String()
	}
	return diffs
}

func tokenize(s string) []string {
	var out []string
	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i + 1
		switch {
		case isWordRune(runes[i]):
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
		case unicode.IsSpace(runes[i]):
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
		}
		out = append(out, string(runes[i:j]))
		i = j
	}
	return out
}

// renderDiffSide renders one side of a diff: the original shows deletions,
// the improved text shows insertions.
func renderDiffSide(diffs []diffmatchpatch.Diff, improved bool, st styles.ComposerStyles) string {
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(st.Text.Render(d.Text))
		case diffmatchpatch.DiffInsert:
			if improved {
				b.WriteString(st.DiffInsert.Render(d.Text))
			}
		case diffmatchpatch.DiffDelete:
			if !improved {
				b.WriteString(st.DiffDelete.Render(d.Text))
			}
		}
	}
	return b.String()
}

func (m *Model) reviewView(width int) string {
	st := m.styles
	r := &m.review
	width = clampInt(width, 30, 110)

	title := st.Title.Render("Smart reply")
	if r.state == ReviewLoading {
		body := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			m.spinner.View()+" Improving your reply…",
			"",
			st.Muted.Render("esc cancel"),
		)
		return st.Popup.Width(width - 2).Render(body)
	}

	review, _ := r.Review()
	diffs := wordDiff(review.OriginalText, review.ImprovedText)
	panelWidth := (width - 8) / 2
	stacked := panelWidth < 28
	if stacked {
		panelWidth = width - 6
	}

	panel := func(v Version, label, content string) string {
		style := st.PanelInactive
		if r.selected == v {
			style = st.PanelActive
			label = "▸ " + label
		}
		if r.state == ReviewRegenerating {
			style = st.PanelInactive.Faint(true)
		}
		inner := lipgloss.JoinVertical(lipgloss.Left,
			st.Accent.Render(label),
			styles.WrapText(content, panelWidth-4),
		)
		return style.Width(panelWidth).Render(inner)
	}
	original := panel(VersionOriginal, "1 Original", renderDiffSide(diffs, false, st))
	improvedLabel := "2 Improved"
	if review.WasTranslated {
		improvedLabel += fmt.Sprintf(" (translated to %s)", ai.LanguageName(review.DetectedUserLanguage))
	}
	improved := panel(VersionImproved, improvedLabel, renderDiffSide(diffs, true, st))

	var panels string
	if stacked {
		panels = lipgloss.JoinVertical(lipgloss.Left, original, improved)
	} else {
		panels = lipgloss.JoinHorizontal(lipgloss.Top, original, " ", improved)
	}

	lines := []string{title, panels}
	if len(review.Improvements) > 0 {
		lines = append(lines, st.Muted.Render("Improvements:"))
		for _, imp := range review.Improvements {
			lines = append(lines, styles.WrapText("• "+imp, width-6))
		}
	}
	if r.Failed() {
		lines = append(lines, st.Error.Render("Smart reply is unavailable; you can still send the original."))
	}

	tone := r.Tone()
	if tone == "" {
		tone = "auto"
	}
	lang := "keep"
	if code := r.Language(); code != "" {
		lang = ai.LanguageName(code)
	}
	params := fmt.Sprintf("tone: %s (t)   language: %s (g)", tone, lang)
	if r.state == ReviewRegenerating {
		lines = append(lines, m.spinner.View()+" Regenerating…")
	} else {
		lines = append(lines, st.Accent.Render(params))
		lines = append(lines, st.Muted.Render("tab switch · r regenerate · enter send selected · esc cancel"))
	}
	return st.Popup.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
