package markup

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML serializes the document. Every plain line after the first is preceded
// by <br>; runs of list lines become <ul>/<ol> blocks with the markers
// stripped, preceded by <br> when they follow a plain line.
func (d *Document) HTML() string {
	if len(d.cells) == 0 {
		return ""
	}
	var b strings.Builder
	open := NoList
	prevPlain := false
	for i, ln := range d.Lines() {
		kind, markerLen := d.ListMarker(ln)
		if kind != open {
			if open != NoList {
				b.WriteString(closeListTag(open))
			}
			if kind != NoList {
				if prevPlain {
					b.WriteString("<br>")
				}
				b.WriteString(openListTag(kind))
			}
			open = kind
		}
		if kind != NoList {
			b.WriteString("<li>")
			writeInline(&b, d.cells[ln.Start+markerLen:ln.End])
			b.WriteString("</li>")
			prevPlain = false
			continue
		}
		if i > 0 {
			b.WriteString("<br>")
		}
		writeInline(&b, d.cells[ln.Start:ln.End])
		prevPlain = true
	}
	if open != NoList {
		b.WriteString(closeListTag(open))
	}
	return b.String()
}

func openListTag(kind ListKind) string {
	if kind == NumberedList {
		return "<ol>"
	}
	return "<ul>"
}

func closeListTag(kind ListKind) string {
	if kind == NumberedList {
		return "</ol>"
	}
	return "</ul>"
}

func writeInline(b *strings.Builder, cells []cell) {
	i := 0
	for i < len(cells) {
		j := i
		var run strings.Builder
		for j < len(cells) && cells[j].style == cells[i].style && cells[j].href == cells[i].href {
			run.WriteRune(cells[j].r)
			j++
		}
		style, href := cells[i].style, cells[i].href
		if href != "" {
			b.WriteString(`<a href="` + html.EscapeString(href) + `">`)
		}
		if style.Has(Bold) {
			b.WriteString("<b>")
		}
		if style.Has(Italic) {
			b.WriteString("<i>")
		}
		if style.Has(Underline) {
			b.WriteString("<u>")
		}
		b.WriteString(html.EscapeString(run.String()))
		if style.Has(Underline) {
			b.WriteString("</u>")
		}
		if style.Has(Italic) {
			b.WriteString("</i>")
		}
		if style.Has(Bold) {
			b.WriteString("</b>")
		}
		if href != "" {
			b.WriteString("</a>")
		}
		i = j
	}
}

// Parse builds a document from markup. Unknown tags are dropped and their
// text kept; block elements (p, div, li, lists) end the current line the way
// a browser's innerText does.
func Parse(markup string) *Document {
	p := &parser{doc: &Document{}}
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a reader failure; either way keep what was parsed.
			return p.doc
		case html.TextToken:
			p.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			href := ""
			if hasAttr {
				for {
					key, val, more := z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
					if !more {
						break
					}
				}
			}
			p.start(atom.Lookup(name), href, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			name, _ := z.TagName()
			p.end(atom.Lookup(name))
		}
	}
}

type listFrame struct {
	kind ListKind
	n    int
}

type parser struct {
	doc        *Document
	bold       int
	italic     int
	underline  int
	hrefs      []string
	lists      []listFrame
	needBreak  bool
	lineActive bool
}

func (p *parser) style() Style {
	var s Style
	if p.bold > 0 {
		s |= Bold
	}
	if p.italic > 0 {
		s |= Italic
	}
	if p.underline > 0 {
		s |= Underline
	}
	return s
}

func (p *parser) newline() {
	p.doc.Insert(p.doc.Len(), "\n", 0)
	p.lineActive = false
	p.needBreak = false
}

// breakLine ends the current line if it holds anything.
func (p *parser) breakLine() {
	if p.lineActive {
		p.newline()
	}
}

func (p *parser) text(s string) {
	if s == "" {
		return
	}
	// Source formatting between block tags, not content.
	if strings.TrimSpace(s) == "" && strings.Contains(s, "\n") && (len(p.lists) > 0 || !p.lineActive) {
		return
	}
	if p.needBreak {
		p.newline()
	}
	href := ""
	if n := len(p.hrefs); n > 0 {
		href = p.hrefs[n-1]
	}
	if href != "" {
		p.doc.InsertLink(p.doc.Len(), s, href, p.style())
	} else {
		p.doc.Insert(p.doc.Len(), s, p.style())
	}
	p.lineActive = !strings.HasSuffix(s, "\n")
}

func (p *parser) start(a atom.Atom, href string, selfClosing bool) {
	switch a {
	case atom.B, atom.Strong:
		p.bold++
	case atom.I, atom.Em:
		p.italic++
	case atom.U:
		p.underline++
	case atom.A:
		if !selfClosing {
			p.hrefs = append(p.hrefs, href)
		}
	case atom.Br:
		p.newline()
	case atom.Ul, atom.Ol:
		p.breakLine()
		p.needBreak = false
		kind := BulletList
		if a == atom.Ol {
			kind = NumberedList
		}
		p.lists = append(p.lists, listFrame{kind: kind})
	case atom.Li:
		if p.needBreak {
			p.newline()
		}
		p.breakLine()
		marker := BulletMarker
		if n := len(p.lists); n > 0 {
			top := &p.lists[n-1]
			top.n++
			if top.kind == NumberedList {
				marker = strconv.Itoa(top.n) + ". "
			}
		}
		p.doc.Insert(p.doc.Len(), marker, 0)
		p.lineActive = true
	case atom.P, atom.Div:
		p.breakLine()
		if p.needBreak {
			p.newline()
		}
	}
}

func (p *parser) end(a atom.Atom) {
	switch a {
	case atom.B, atom.Strong:
		if p.bold > 0 {
			p.bold--
		}
	case atom.I, atom.Em:
		if p.italic > 0 {
			p.italic--
		}
	case atom.U:
		if p.underline > 0 {
			p.underline--
		}
	case atom.A:
		if n := len(p.hrefs); n > 0 {
			p.hrefs = p.hrefs[:n-1]
		}
	case atom.Ul, atom.Ol:
		if n := len(p.lists); n > 0 {
			p.lists = p.lists[:n-1]
		}
		if p.lineActive {
			p.needBreak = true
		}
	case atom.P, atom.Div:
		if p.lineActive {
			p.needBreak = true
		}
	}
}

// PlainText returns the plain-text projection of markup.
func PlainText(markup string) string {
	return Parse(markup).Text()
}
