package styles

import "github.com/charmbracelet/lipgloss"

const (
	// LayoutGap is the default space between columns.
	LayoutGap = 2

	// LayoutInnerPadding is the default panel content padding.
	LayoutInnerPadding = 1
)

const (
	minListWidth   = 22
	maxListWidth   = 36
	minThreadWidth = 40
)

// ColumnWidths defines responsive widths for the conversation list and the
// conversation pane.
type ColumnWidths struct {
	List   int
	Thread int
}

// ComputeColumnWidths returns responsive column widths. Narrow terminals drop
// the list column.
func ComputeColumnWidths(totalWidth int) ColumnWidths {
	if totalWidth <= 0 {
		return ColumnWidths{}
	}
	list := clampInt(totalWidth/4, minListWidth, maxListWidth)
	thread := totalWidth - list - LayoutGap
	if thread < minThreadWidth {
		return ColumnWidths{Thread: totalWidth}
	}
	return ColumnWidths{List: list, Thread: thread}
}

// PanelStyle returns a focused/unfocused border style for panes.
func PanelStyle(theme Theme, focused bool) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(BorderStyleForTheme(theme)).
		BorderForeground(lipgloss.Color(panelBorderColor(theme, focused))).
		Padding(0, LayoutInnerPadding)
}

// DividerStyle returns the divider style between sections.
func DividerStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Borders.Divider))
}

func panelBorderColor(theme Theme, focused bool) string {
	if focused {
		return theme.Borders.ActivePane
	}
	return theme.Borders.InactivePane
}

// BorderStyleForTheme maps the theme's border name to a lipgloss border.
func BorderStyleForTheme(theme Theme) lipgloss.Border {
	switch theme.BorderStyle {
	case "double":
		return lipgloss.DoubleBorder()
	case "sharp":
		return lipgloss.NormalBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
