package markup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLRoundTrip(t *testing.T) {
	cases := []string{
		"plain",
		"a\nb",
		"a\n\nb",
		"\n• x",
		"a\n• x\n• y\nb",
		"• x\n",
		"• x\n\nb",
		"a\n\n• x",
		"1. first\n2. second",
		"• x\n1. y",
		"<script>&amp;",
	}
	for _, text := range cases {
		t.Run(text, func(t *testing.T) {
			d := FromText(text)
			require.Equal(t, text, Parse(d.HTML()).Text(), "markup %q", d.HTML())
		})
	}
}

func TestHTMLInlineStyles(t *testing.T) {
	d := FromText("hi there")
	d.ToggleStyle(0, 2, Bold|Italic)
	d.SetLink(3, 8, "https://x.test/?a=1&b=2")

	out := d.HTML()
	require.Equal(t, `<b><i>hi</i></b> <a href="https://x.test/?a=1&amp;b=2">there</a>`, out)

	back := Parse(out)
	require.True(t, back.Equal(d))
}

func TestParseForeignMarkup(t *testing.T) {
	d := Parse("<p>Hello <strong>team</strong></p><p>Thanks,<br/>Ann</p>")
	require.Equal(t, "Hello team\nThanks,\nAnn", d.Text())
	require.True(t, d.HasStyle(6, 10, Bold))

	d = Parse("<ul>\n  <li>one</li>\n  <li>two</li>\n</ul>")
	require.Equal(t, "• one\n• two", d.Text())
}

func TestListsSerializeWithoutMarkers(t *testing.T) {
	d := FromText("• a\n• b")
	require.Equal(t, "<ul><li>a</li><li>b</li></ul>", d.HTML())
	require.Equal(t, "", (&Document{}).HTML())
}
