package styles

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:          "default",
	BorderStyle:   "rounded",
	AuthorPalette: append([]string(nil), AuthorColorPalette...),
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
		Error:      "203",
	},
	Message: MessageColors{
		Agent:    "81",
		Customer: "147",
		System:   "214",
	},
	Status: StatusColors{
		Open:     "41",
		Pending:  "220",
		Resolved: "243",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		SelectedItem: "75",
		Scrollbar:    "246",
	},
	Borders: BorderColors{
		ActivePane:   "75",
		InactivePane: "240",
		Divider:      "238",
	},
	Editor: EditorColors{
		Caret:      "252",
		Selection:  "24",
		Link:       "75",
		DiffInsert: "71",
		DiffDelete: "131",
	},
}
