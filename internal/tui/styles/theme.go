// Package styles holds the replydesk TUI theme tokens and prebuilt styles.
package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
	Error      string
}

// MessageColors defines colors for conversation message authors.
type MessageColors struct {
	Agent    string
	Customer string
	System   string
}

// StatusColors defines colors for conversation statuses.
type StatusColors struct {
	Open     string
	Pending  string
	Resolved string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	SelectedItem string
	Scrollbar    string
}

// BorderColors defines border colors for pane state.
type BorderColors struct {
	ActivePane   string
	InactivePane string
	Divider      string
}

// EditorColors defines colors for the reply composer surface.
type EditorColors struct {
	Caret      string
	Selection  string
	Link       string
	DiffInsert string
	DiffDelete string
}

// Theme defines the replydesk TUI style tokens.
type Theme struct {
	Name          string
	BorderStyle   string   // "rounded", "sharp", "double", "hidden"
	AuthorPalette []string // optional override for customer identity colors (ANSI-256 codes)

	Base    BaseColors
	Message MessageColors
	Status  StatusColors
	Chrome  ChromeColors
	Borders BorderColors
	Editor  EditorColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// Lookup returns the named theme, falling back to the default.
func Lookup(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

func (t Theme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}

// StatusStyle colors a conversation status label.
func (t Theme) StatusStyle(status string) lipgloss.Style {
	code := t.Status.Open
	switch status {
	case "pending":
		code = t.Status.Pending
	case "resolved":
		code = t.Status.Resolved
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(code)).Bold(true)
}
