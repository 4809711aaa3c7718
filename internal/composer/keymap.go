package composer

import "github.com/charmbracelet/bubbles/key"

// KeyMap binds composer actions to keys.
type KeyMap struct {
	Send      key.Binding
	FastReply key.Binding

	Bold         key.Binding
	Italic       key.Binding
	Underline    key.Binding
	BulletList   key.Binding
	NumberedList key.Binding
	Link         key.Binding

	Undo      key.Binding
	Redo      key.Binding
	SelectAll key.Binding

	Translate  key.Binding
	Revise     key.Binding
	Generate   key.Binding
	SmartReply key.Binding
	Dictate    key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "send")),
		FastReply: key.NewBinding(key.WithKeys("alt+s"), key.WithHelp("alt+s", "send & resolve")),

		Bold:         key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "bold")),
		Italic:       key.NewBinding(key.WithKeys("alt+i"), key.WithHelp("alt+i", "italic")),
		Underline:    key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "underline")),
		BulletList:   key.NewBinding(key.WithKeys("alt+l"), key.WithHelp("alt+l", "bullets")),
		NumberedList: key.NewBinding(key.WithKeys("alt+n"), key.WithHelp("alt+n", "numbers")),
		Link:         key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "link")),

		Undo:      key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "undo")),
		Redo:      key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "redo")),
		SelectAll: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "select all")),

		Translate:  key.NewBinding(key.WithKeys("alt+t"), key.WithHelp("alt+t", "translate")),
		Revise:     key.NewBinding(key.WithKeys("alt+r"), key.WithHelp("alt+r", "revise")),
		Generate:   key.NewBinding(key.WithKeys("alt+g"), key.WithHelp("alt+g", "generate")),
		SmartReply: key.NewBinding(key.WithKeys("alt+a"), key.WithHelp("alt+a", "smart reply")),
		Dictate:    key.NewBinding(key.WithKeys("alt+m"), key.WithHelp("alt+m", "dictate")),
	}
}

// ShortHelp lists the bindings shown in the status row.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.FastReply, k.SmartReply, k.Translate, k.Revise, k.Generate, k.Link}
}

// FullHelp groups every binding for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.FastReply, k.Undo, k.Redo, k.SelectAll},
		{k.Bold, k.Italic, k.Underline, k.BulletList, k.NumberedList, k.Link},
		{k.Translate, k.Revise, k.Generate, k.SmartReply, k.Dictate},
	}
}
