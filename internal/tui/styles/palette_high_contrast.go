package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name:        "high-contrast",
	BorderStyle: "sharp",
	Base: BaseColors{
		Background: "16",
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
		Error:      "196",
	},
	Message: MessageColors{
		Agent:    "87",
		Customer: "225",
		System:   "229",
	},
	Status: StatusColors{
		Open:     "46",
		Pending:  "226",
		Resolved: "244",
	},
	Chrome: ChromeColors{
		Header:       "117",
		Footer:       "159",
		SelectedItem: "51",
		Scrollbar:    "252",
	},
	Borders: BorderColors{
		ActivePane:   "231",
		InactivePane: "250",
		Divider:      "248",
	},
	Editor: EditorColors{
		Caret:      "231",
		Selection:  "27",
		Link:       "51",
		DiffInsert: "46",
		DiffDelete: "196",
	},
}
