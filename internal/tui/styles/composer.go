package styles

import "github.com/charmbracelet/lipgloss"

// ComposerStyles contains pre-built styles for the reply composer and its
// popups.
type ComposerStyles struct {
	Theme Theme

	Text      lipgloss.Style
	Caret     lipgloss.Style
	Selection lipgloss.Style
	Link      lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style
	Error     lipgloss.Style
	Title     lipgloss.Style

	Popup        lipgloss.Style
	MenuItem     lipgloss.Style
	MenuSelected lipgloss.Style
	Toolbar      lipgloss.Style
	ToolbarOff   lipgloss.Style

	PanelActive   lipgloss.Style
	PanelInactive lipgloss.Style
	DiffInsert    lipgloss.Style
	DiffDelete    lipgloss.Style
}

// NewComposerStyles builds the composer style set for theme.
func NewComposerStyles(theme Theme) ComposerStyles {
	border := BorderStyleForTheme(theme)
	fg := lipgloss.Color(theme.Base.Foreground)
	return ComposerStyles{
		Theme:     theme,
		Text:      lipgloss.NewStyle().Foreground(fg),
		Caret:     lipgloss.NewStyle().Reverse(true),
		Selection: lipgloss.NewStyle().Background(lipgloss.Color(theme.Editor.Selection)).Foreground(fg),
		Link:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Editor.Link)).Underline(true),
		Muted:     theme.mutedStyle(),
		Accent:    theme.accentStyle(),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Error)),
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Header)).Bold(true),
		Popup: lipgloss.NewStyle().
			BorderStyle(border).
			BorderForeground(lipgloss.Color(theme.Borders.ActivePane)).
			Padding(0, 1),
		MenuItem: lipgloss.NewStyle().Foreground(fg),
		MenuSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Base.Background)).
			Background(lipgloss.Color(theme.Chrome.SelectedItem)).
			Bold(true),
		Toolbar:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Footer)),
		ToolbarOff: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Borders.Divider)),
		PanelActive: lipgloss.NewStyle().
			BorderStyle(border).
			BorderForeground(lipgloss.Color(theme.Borders.ActivePane)).
			Padding(0, 1),
		PanelInactive: lipgloss.NewStyle().
			BorderStyle(border).
			BorderForeground(lipgloss.Color(theme.Borders.InactivePane)).
			Padding(0, 1),
		DiffInsert: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Editor.DiffInsert)).Bold(true),
		DiffDelete: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Editor.DiffDelete)).Strikethrough(true),
	}
}
