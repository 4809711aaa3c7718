// Package markup holds the reply composer's document model: plain-text runes
// carrying inline styles and link targets, projected to and from a small
// HTML subset (<b> <i> <u> <a href> <ul>/<ol> <li> <br>).
package markup

import (
	"strings"
)

// Style is a bit set of inline text styles.
type Style uint8

const (
	Bold Style = 1 << iota
	Italic
	Underline
)

// Has reports whether every bit of other is set in s.
func (s Style) Has(other Style) bool { return s&other == other }

type cell struct {
	r     rune
	style Style
	href  string
}

// Span is a maximal run of runes sharing the same style and link target.
// Offsets are rune offsets into Text, half-open.
type Span struct {
	Start int
	End   int
	Style Style
	Href  string
}

// Document is a mutable styled text. The zero value is an empty document.
type Document struct {
	cells []cell
}

// FromText builds an unstyled document from plain text.
func FromText(text string) *Document {
	d := &Document{}
	d.Insert(0, text, 0)
	return d
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{cells: make([]cell, len(d.cells))}
	copy(out.cells, d.cells)
	return out
}

// Len is the length of the plain-text projection in runes.
func (d *Document) Len() int { return len(d.cells) }

// Text is the plain-text projection.
func (d *Document) Text() string {
	var b strings.Builder
	b.Grow(len(d.cells))
	for _, c := range d.cells {
		b.WriteRune(c.r)
	}
	return b.String()
}

// Runes returns a copy of the plain-text projection as runes.
func (d *Document) Runes() []rune {
	out := make([]rune, len(d.cells))
	for i, c := range d.cells {
		out[i] = c.r
	}
	return out
}

// Equal reports whether both documents hold the same text, styles and links.
func (d *Document) Equal(other *Document) bool {
	if other == nil {
		return d.Len() == 0
	}
	if len(d.cells) != len(other.cells) {
		return false
	}
	for i := range d.cells {
		if d.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// StyleAt returns the style and link target of the rune at i.
func (d *Document) StyleAt(i int) (Style, string) {
	if i < 0 || i >= len(d.cells) {
		return 0, ""
	}
	return d.cells[i].style, d.cells[i].href
}

// Spans returns the run-length encoding of styles and links.
func (d *Document) Spans() []Span {
	var out []Span
	for i, c := range d.cells {
		if n := len(out); n > 0 && out[n-1].Style == c.style && out[n-1].Href == c.href && out[n-1].End == i {
			out[n-1].End = i + 1
			continue
		}
		out = append(out, Span{Start: i, End: i + 1, Style: c.style, Href: c.href})
	}
	return out
}

func (d *Document) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > len(d.cells) {
		return len(d.cells)
	}
	return i
}

func (d *Document) order(from, to int) (int, int) {
	from, to = d.clamp(from), d.clamp(to)
	if from > to {
		from, to = to, from
	}
	return from, to
}

// Insert places text at rune offset at with the given style. Link targets are
// inherited only when inserting strictly inside a link.
func (d *Document) Insert(at int, text string, style Style) int {
	if text == "" {
		return 0
	}
	at = d.clamp(at)
	href := ""
	if at > 0 && at < len(d.cells) && d.cells[at-1].href != "" && d.cells[at-1].href == d.cells[at].href {
		href = d.cells[at-1].href
	}
	ins := make([]cell, 0, len(text))
	for _, r := range normalizeNewlines(text) {
		c := cell{r: r, style: style, href: href}
		if r == '\n' {
			c.style, c.href = 0, ""
		}
		ins = append(ins, c)
	}
	d.cells = append(d.cells[:at], append(ins, d.cells[at:]...)...)
	return len(ins)
}

// InsertLink places a linked run of text at rune offset at.
func (d *Document) InsertLink(at int, text, href string, style Style) int {
	at = d.clamp(at)
	n := d.Insert(at, text, style)
	for i := at; i < at+n; i++ {
		if d.cells[i].r != '\n' {
			d.cells[i].href = href
		}
	}
	return n
}

// Delete removes runes in [from, to).
func (d *Document) Delete(from, to int) {
	from, to = d.order(from, to)
	if from == to {
		return
	}
	d.cells = append(d.cells[:from], d.cells[to:]...)
}

// Replace swaps [from, to) for text, which takes the style of the first
// replaced rune. It returns the inserted length.
func (d *Document) Replace(from, to int, text string) int {
	from, to = d.order(from, to)
	style, _ := d.StyleAt(from)
	if from == to && from > 0 {
		style, _ = d.StyleAt(from - 1)
	}
	d.Delete(from, to)
	return d.Insert(from, text, style)
}

// HasStyle reports whether every non-newline rune in [from, to) carries s.
// An empty or newline-only range reports false.
func (d *Document) HasStyle(from, to int, s Style) bool {
	from, to = d.order(from, to)
	seen := false
	for i := from; i < to; i++ {
		if d.cells[i].r == '\n' {
			continue
		}
		seen = true
		if !d.cells[i].style.Has(s) {
			return false
		}
	}
	return seen
}

// ToggleStyle removes s from [from, to) if the whole range carries it and
// adds it otherwise. Newlines never carry styles.
func (d *Document) ToggleStyle(from, to int, s Style) {
	from, to = d.order(from, to)
	on := !d.HasStyle(from, to, s)
	for i := from; i < to; i++ {
		if d.cells[i].r == '\n' {
			continue
		}
		if on {
			d.cells[i].style |= s
		} else {
			d.cells[i].style &^= s
		}
	}
}

// SetLink attaches href to [from, to); an empty href removes links.
func (d *Document) SetLink(from, to int, href string) {
	from, to = d.order(from, to)
	for i := from; i < to; i++ {
		if d.cells[i].r != '\n' {
			d.cells[i].href = href
		}
	}
}

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
