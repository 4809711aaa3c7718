package markup

import (
	"strconv"
)

// ListKind identifies a list block in the plain-text projection. List items
// are ordinary lines that start with a marker: "• " for bullets, "N. " for
// numbered items.
type ListKind int

const (
	NoList ListKind = iota
	BulletList
	NumberedList
)

// BulletMarker prefixes bullet list lines in the plain-text projection.
const BulletMarker = "• "

// Line is one newline-delimited line of the plain-text projection.
type Line struct {
	Start int // rune offset of the first rune
	End   int // rune offset of the terminating newline, or Len
}

// Lines splits the document into lines. An empty document has one empty line.
func (d *Document) Lines() []Line {
	out := make([]Line, 0, 4)
	start := 0
	for i, c := range d.cells {
		if c.r == '\n' {
			out = append(out, Line{Start: start, End: i})
			start = i + 1
		}
	}
	return append(out, Line{Start: start, End: len(d.cells)})
}

// LineAt returns the index and bounds of the line containing offset i.
func (d *Document) LineAt(i int) (int, Line) {
	i = d.clamp(i)
	lines := d.Lines()
	for idx, ln := range lines {
		if i <= ln.End {
			return idx, ln
		}
	}
	last := len(lines) - 1
	return last, lines[last]
}

// ListMarker reports the list kind of ln and its marker length in runes.
func (d *Document) ListMarker(ln Line) (ListKind, int) {
	return listMarker(d.cells[ln.Start:ln.End])
}

func listMarker(line []cell) (ListKind, int) {
	marker := []rune(BulletMarker)
	if len(line) >= len(marker) {
		match := true
		for i, r := range marker {
			if line[i].r != r {
				match = false
				break
			}
		}
		if match {
			return BulletList, len(marker)
		}
	}
	digits := 0
	for digits < len(line) && line[digits].r >= '0' && line[digits].r <= '9' {
		digits++
	}
	if digits > 0 && digits <= 4 && len(line) >= digits+2 && line[digits].r == '.' && line[digits+1].r == ' ' {
		return NumberedList, digits + 2
	}
	return NoList, 0
}

// ToggleList turns every line touched by [from, to) into an item of kind, or
// back into plain lines when all of them already are. It returns from and to
// mapped into the edited document.
func (d *Document) ToggleList(from, to int, kind ListKind) (int, int) {
	from, to = d.order(from, to)
	lines := d.Lines()
	first, _ := d.LineAt(from)
	last, _ := d.LineAt(to)

	all := true
	for i := first; i <= last; i++ {
		if k, _ := d.ListMarker(lines[i]); k != kind {
			all = false
			break
		}
	}

	type edit struct {
		line      Line
		oldPrefix int
		newPrefix string
	}
	edits := make([]edit, 0, last-first+1)
	n := 1
	for i := first; i <= last; i++ {
		_, oldLen := d.ListMarker(lines[i])
		prefix := ""
		if !all {
			switch kind {
			case BulletList:
				prefix = BulletMarker
			case NumberedList:
				prefix = strconv.Itoa(n) + ". "
				n++
			}
		}
		edits = append(edits, edit{line: lines[i], oldPrefix: oldLen, newPrefix: prefix})
	}

	mapOffset := func(o int) int {
		shift := 0
		for _, e := range edits {
			newLen := len([]rune(e.newPrefix))
			if o < e.line.Start {
				break
			}
			if o > e.line.End {
				shift += newLen - e.oldPrefix
				continue
			}
			col := o - e.line.Start
			if col >= e.oldPrefix {
				col = col - e.oldPrefix + newLen
			} else {
				col = newLen
			}
			return e.line.Start + shift + col
		}
		return o + shift
	}
	newFrom, newTo := mapOffset(from), mapOffset(to)

	// Apply bottom-up so earlier line offsets stay valid.
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		d.Delete(e.line.Start, e.line.Start+e.oldPrefix)
		d.Insert(e.line.Start, e.newPrefix, 0)
	}
	return newFrom, newTo
}
