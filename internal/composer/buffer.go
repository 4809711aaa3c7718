package composer

import (
	"strings"

	"github.com/tOgg1/replydesk/internal/markup"
)

// Selection is an offset pair into the buffer's plain-text projection.
// Anchor stays put while Head follows the caret.
type Selection struct {
	Anchor int
	Head   int
}

// Start is the lower offset.
func (s Selection) Start() int { return min(s.Anchor, s.Head) }

// End is the higher offset.
func (s Selection) End() int { return max(s.Anchor, s.Head) }

// Collapsed reports whether the selection is a bare caret.
func (s Selection) Collapsed() bool { return s.Anchor == s.Head }

func caretAt(i int) Selection { return Selection{Anchor: i, Head: i} }

type editKind int

const (
	editNone editKind = iota
	editTyping
	editDeleting
)

const undoLimit = 200

type snapshot struct {
	doc *markup.Document
	sel Selection
}

// Buffer is the composer's editing surface: the document plus caret,
// a pending inline style for the next typed text, and an undo history.
//
// Mutations through the editing primitives (InsertText, ReplaceRange,
// ReplaceAllUndoable, ExecFormat, InsertLink) are recorded as undo steps;
// Overwrite behaves like assigning raw markup and discards the history.
type Buffer struct {
	doc     *markup.Document
	sel     Selection
	focused bool
	saved   *Selection
	pending markup.Style

	undo []snapshot
	redo []snapshot

	lastEdit   editKind
	lastEditAt int
}

// NewBuffer seeds a buffer from markup with the caret at the end.
func NewBuffer(value string) *Buffer {
	doc := markup.Parse(value)
	return &Buffer{doc: doc, sel: caretAt(doc.Len())}
}

// HTML is the serialized buffer content.
func (b *Buffer) HTML() string { return b.doc.HTML() }

// Text is the plain-text projection.
func (b *Buffer) Text() string { return b.doc.Text() }

// Len is the plain-text length in runes.
func (b *Buffer) Len() int { return b.doc.Len() }

// Empty reports whether the buffer holds only whitespace.
func (b *Buffer) Empty() bool { return strings.TrimSpace(b.doc.Text()) == "" }

// Document exposes the underlying document for rendering.
func (b *Buffer) Document() *markup.Document { return b.doc }

// Selection returns the live selection.
func (b *Buffer) Selection() Selection { return b.sel }

// Caret is the head of the selection.
func (b *Buffer) Caret() int { return b.sel.Head }

// Focused reports whether the surface has focus.
func (b *Buffer) Focused() bool { return b.focused }

// Focus gives the surface focus.
func (b *Buffer) Focus() { b.focused = true }

// Blur removes focus, remembering the selection for the next restore.
func (b *Buffer) Blur() {
	b.SaveSelection()
	b.focused = false
}

// PendingStyle is the style that the next typed text will carry on top of
// its neighbour's style.
func (b *Buffer) PendingStyle() markup.Style { return b.pending }

func (b *Buffer) clamp(i int) int {
	return clampInt(i, 0, b.doc.Len())
}

// SetSelection moves the selection, clamping to the content.
func (b *Buffer) SetSelection(anchor, head int) {
	b.sel = Selection{Anchor: b.clamp(anchor), Head: b.clamp(head)}
	b.breakCoalescing()
}

// MoveCaret moves the head by delta runes. With extend, the anchor stays.
func (b *Buffer) MoveCaret(delta int, extend bool) {
	head := b.clamp(b.sel.Head + delta)
	if !extend && !b.sel.Collapsed() {
		// Collapsing a range moves to the edge in the direction of travel.
		if delta < 0 {
			head = b.sel.Start()
		} else {
			head = b.sel.End()
		}
	}
	anchor := head
	if extend {
		anchor = b.sel.Anchor
	}
	b.SetSelection(anchor, head)
	b.pending = 0
}

// CaretToLineEdge moves the caret to the start or end of its line.
func (b *Buffer) CaretToLineEdge(end bool, extend bool) {
	_, ln := b.doc.LineAt(b.sel.Head)
	head := ln.Start
	if end {
		head = ln.End
	}
	anchor := head
	if extend {
		anchor = b.sel.Anchor
	}
	b.SetSelection(anchor, head)
}

// CaretToEnd collapses the selection at the end of the content.
func (b *Buffer) CaretToEnd() {
	b.SetSelection(b.doc.Len(), b.doc.Len())
}

// SelectAll selects the whole content.
func (b *Buffer) SelectAll() {
	b.SetSelection(0, b.doc.Len())
}

// SaveSelection remembers the current selection. Without focus there is no
// live selection and the previously saved one is kept.
func (b *Buffer) SaveSelection() {
	if !b.focused {
		return
	}
	sel := b.sel
	b.saved = &sel
}

// RestoreSelection reinstates the saved selection, or a caret at the end of
// the content when nothing was saved.
func (b *Buffer) RestoreSelection() {
	if b.saved == nil {
		b.CaretToEnd()
		return
	}
	b.SetSelection(b.saved.Anchor, b.saved.Head)
}

// SelectedText is the plain text under the selection.
func (b *Buffer) SelectedText() string {
	runes := b.doc.Runes()
	return string(runes[b.sel.Start():b.sel.End()])
}

func (b *Buffer) checkpoint(kind editKind, at int) {
	coalesce := kind != editNone && kind == b.lastEdit && at == b.lastEditAt
	if !coalesce {
		b.undo = append(b.undo, snapshot{doc: b.doc.Clone(), sel: b.sel})
		if len(b.undo) > undoLimit {
			b.undo = b.undo[len(b.undo)-undoLimit:]
		}
	}
	b.redo = nil
	b.lastEdit = kind
}

func (b *Buffer) breakCoalescing() {
	b.lastEdit = editNone
}

// InsertText types text at the caret, replacing any selection. Consecutive
// typing at the advancing caret coalesces into one undo step.
func (b *Buffer) InsertText(text string) {
	if text == "" {
		return
	}
	start, end := b.sel.Start(), b.sel.End()
	kind := editTyping
	if start != end || strings.ContainsRune(text, '\n') {
		kind = editNone
	}
	b.checkpoint(kind, start)

	style := markup.Style(0)
	if start > 0 {
		if prev, _ := b.doc.StyleAt(start - 1); b.doc.Runes()[start-1] != '\n' {
			style = prev
		}
	}
	style ^= b.pending
	b.doc.Delete(start, end)
	n := b.doc.Insert(start, text, style)
	b.sel = caretAt(start + n)
	b.lastEditAt = start + n
	// The typed text now carries the style; later typing inherits it.
	b.pending = 0
}

// DeleteBackward removes the selection or the rune before the caret.
func (b *Buffer) DeleteBackward() bool {
	if !b.sel.Collapsed() {
		return b.deleteSelection()
	}
	at := b.sel.Head
	if at == 0 {
		return false
	}
	b.checkpoint(editDeleting, at)
	b.doc.Delete(at-1, at)
	b.sel = caretAt(at - 1)
	b.lastEditAt = at - 1
	b.pending = 0
	return true
}

// DeleteForward removes the selection or the rune after the caret.
func (b *Buffer) DeleteForward() bool {
	if !b.sel.Collapsed() {
		return b.deleteSelection()
	}
	at := b.sel.Head
	if at >= b.doc.Len() {
		return false
	}
	b.checkpoint(editNone, at)
	b.doc.Delete(at, at+1)
	b.pending = 0
	return true
}

func (b *Buffer) deleteSelection() bool {
	b.checkpoint(editNone, b.sel.Start())
	start := b.sel.Start()
	b.doc.Delete(start, b.sel.End())
	b.sel = caretAt(start)
	b.pending = 0
	return true
}

// ReplaceRange swaps [from, to) for text as a single undo step and puts the
// caret after the inserted text.
func (b *Buffer) ReplaceRange(from, to int, text string) {
	b.checkpoint(editNone, from)
	b.breakCoalescing()
	from, to = b.clamp(from), b.clamp(to)
	n := b.doc.Replace(from, to, text)
	b.sel = caretAt(min(from, to) + n)
	b.pending = 0
}

// ReplaceAllUndoable selects all content and replaces it with text through
// the text-replacement primitive, so the whole swap is one undo step.
func (b *Buffer) ReplaceAllUndoable(text string) {
	b.SelectAll()
	b.checkpoint(editNone, 0)
	b.breakCoalescing()
	b.doc.Delete(0, b.doc.Len())
	n := b.doc.Insert(0, text, 0)
	b.sel = caretAt(n)
	b.pending = 0
}

// AppendText adds text at the end of the content, separated from existing
// content by a single space, and moves the caret to the end.
func (b *Buffer) AppendText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	current := b.doc.Text()
	if current != "" && !strings.HasSuffix(current, " ") && !strings.HasSuffix(current, "\n") {
		text = " " + text
	}
	end := b.doc.Len()
	b.checkpoint(editNone, end)
	b.breakCoalescing()
	n := b.doc.Insert(end, text, 0)
	b.sel = caretAt(end + n)
}

// Overwrite replaces the content with raw markup. Like assigning innerHTML it
// bypasses the edit primitives, so the undo history is discarded.
func (b *Buffer) Overwrite(value string) {
	b.doc = markup.Parse(value)
	b.sel = caretAt(b.doc.Len())
	b.saved = nil
	b.pending = 0
	b.undo = nil
	b.redo = nil
	b.breakCoalescing()
}

// CanUndo reports whether Undo would change anything.
func (b *Buffer) CanUndo() bool { return len(b.undo) > 0 }

// Undo reverts the last recorded edit.
func (b *Buffer) Undo() bool {
	if len(b.undo) == 0 {
		return false
	}
	last := b.undo[len(b.undo)-1]
	b.undo = b.undo[:len(b.undo)-1]
	b.redo = append(b.redo, snapshot{doc: b.doc.Clone(), sel: b.sel})
	b.doc = last.doc
	b.sel = last.sel
	b.breakCoalescing()
	return true
}

// Redo reapplies the last undone edit.
func (b *Buffer) Redo() bool {
	if len(b.redo) == 0 {
		return false
	}
	last := b.redo[len(b.redo)-1]
	b.redo = b.redo[:len(b.redo)-1]
	b.undo = append(b.undo, snapshot{doc: b.doc.Clone(), sel: b.sel})
	b.doc = last.doc
	b.sel = last.sel
	b.breakCoalescing()
	return true
}
