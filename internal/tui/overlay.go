package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"github.com/tOgg1/replydesk/internal/composer"
)

// rect is a screen region in cells.
type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// layerBounds is where placeOverlay draws layer. Anchored layers open below
// the anchor and flip above it when they would run off the bottom; they are
// shifted left to stay on screen. Modal layers are centered.
func layerBounds(layer composer.Overlay, w, h int) rect {
	fgW := 0
	fgLines := strings.Split(layer.Content, "\n")
	for _, ln := range fgLines {
		fgW = max(fgW, xansi.StringWidth(ln))
	}
	fgW = min(fgW, w)
	fgH := min(len(fgLines), h)

	var x, y int
	if layer.Modal {
		x = (w - fgW) / 2
		y = (h - fgH) / 2
	} else {
		x = layer.Anchor.Left
		y = layer.Anchor.Top
		if y+fgH > h {
			// The caret row sits directly above the anchor.
			y = layer.Anchor.Top - 1 - fgH
		}
		if x+fgW > w {
			x = w - fgW
		}
	}
	return rect{x: max(x, 0), y: max(y, 0), w: fgW, h: fgH}
}

// placeOverlay draws layer over bg at layerBounds.
func placeOverlay(bg string, layer composer.Overlay, w, h int) string {
	bgLines := splitLinesN(bg, h)
	if w <= 0 || h <= 0 {
		return strings.Join(bgLines, "\n")
	}
	r := layerBounds(layer, w, h)
	if r.w <= 0 {
		return strings.Join(bgLines, "\n")
	}
	fgLines := strings.Split(layer.Content, "\n")
	if len(fgLines) > r.h {
		fgLines = fgLines[:r.h]
	}
	overlayAt(bgLines, fgLines, w, r.x, r.y, r.w)
	return strings.Join(bgLines, "\n")
}

// placeCenter draws fg centered over bg.
func placeCenter(bg, fg string, w, h int) string {
	return placeOverlay(bg, composer.Overlay{Content: fg, Modal: true}, w, h)
}

func overlayAt(bgLines, fgLines []string, w, x, y, fgW int) {
	for i := 0; i < len(fgLines) && y+i < len(bgLines); i++ {
		bgLine := bgLines[y+i]
		if n := xansi.StringWidth(bgLine); n < x {
			bgLine += strings.Repeat(" ", x-n)
		}
		left := xansi.Cut(bgLine, 0, x)
		right := xansi.Cut(bgLine, x+fgW, w)

		fgLine := fgLines[i]
		if n := xansi.StringWidth(fgLine); n < fgW {
			fgLine += strings.Repeat(" ", fgW-n)
		} else if n > fgW {
			fgLine = xansi.Cut(fgLine, 0, fgW)
		}
		bgLines[y+i] = left + fgLine + right
	}
}

// splitLinesN splits s into exactly n lines, padding with blanks.
func splitLinesN(s string, n int) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		return lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

// truncateVis cuts s to width visible cells, ending with an ellipsis.
func truncateVis(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= width {
		return s
	}
	return xansi.Truncate(s, width, "…")
}
