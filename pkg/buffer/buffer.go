// Package buffer is an in-memory plain-text editing surface: text plus a caret range.
//
// Offsets are rune offsets. Horizontal caret movement and deletion step over whole
// grapheme clusters so combining marks and emoji sequences are never split.
package buffer

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Buffer holds text and a caret range. The zero value is an empty buffer.
type Buffer struct {
	text    []rune
	start   int
	end     int
	version uint64
}

// New creates a buffer holding text with the caret at the end.
func New(text string) *Buffer {
	b := &Buffer{text: []rune(text)}
	b.start = len(b.text)
	b.end = b.start
	return b
}

func (b *Buffer) Text() string { return string(b.text) }

func (b *Buffer) Len() int { return len(b.text) }

// Version increases on every text change.
func (b *Buffer) Version() uint64 { return b.version }

// Caret returns the selection range, start <= end.
func (b *Buffer) Caret() (int, int) { return b.start, b.end }

// HasSelection reports whether the caret range is non-empty.
func (b *Buffer) HasSelection() bool { return b.start != b.end }

// SetText replaces the whole text and clamps the caret.
func (b *Buffer) SetText(text string) {
	b.text = []rune(text)
	b.version++
	b.SetCaret(b.start, b.end)
}

// SetCaret sets the caret range; offsets are clamped and ordered.
func (b *Buffer) SetCaret(start, end int) {
	start = b.clamp(start)
	end = b.clamp(end)
	if end < start {
		start, end = end, start
	}
	b.start, b.end = start, end
}

// Insert types s at the caret, replacing the selection.
func (b *Buffer) Insert(s string) {
	ins := []rune(s)
	next := make([]rune, 0, len(b.text)-(b.end-b.start)+len(ins))
	next = append(next, b.text[:b.start]...)
	next = append(next, ins...)
	next = append(next, b.text[b.end:]...)
	b.text = next
	b.version++
	b.start += len(ins)
	b.end = b.start
}

// DeleteBackward removes the selection, or the grapheme before the caret.
// It reports whether the text changed.
func (b *Buffer) DeleteBackward() bool {
	if b.HasSelection() {
		b.deleteRange(b.start, b.end)
		return true
	}
	if b.start == 0 {
		return false
	}
	b.deleteRange(b.prevStop(b.start), b.start)
	return true
}

// DeleteForward removes the selection, or the grapheme after the caret.
func (b *Buffer) DeleteForward() bool {
	if b.HasSelection() {
		b.deleteRange(b.start, b.end)
		return true
	}
	if b.end >= len(b.text) {
		return false
	}
	b.deleteRange(b.end, b.nextStop(b.end))
	return true
}

func (b *Buffer) deleteRange(from, to int) {
	b.text = append(b.text[:from:from], b.text[to:]...)
	b.version++
	b.start, b.end = from, from
}

func (b *Buffer) clamp(off int) int {
	if off < 0 {
		return 0
	}
	if off > len(b.text) {
		return len(b.text)
	}
	return off
}

// stops returns the rune offsets of every grapheme cluster boundary, including 0 and Len.
func (b *Buffer) stops() []int {
	out := []int{0}
	if len(b.text) == 0 {
		return out
	}
	g := uniseg.NewGraphemes(string(b.text))
	off := 0
	for g.Next() {
		off += len(g.Runes())
		out = append(out, off)
	}
	return out
}

func (b *Buffer) prevStop(off int) int {
	prev := 0
	for _, s := range b.stops() {
		if s >= off {
			break
		}
		prev = s
	}
	return prev
}

func (b *Buffer) nextStop(off int) int {
	for _, s := range b.stops() {
		if s > off {
			return s
		}
	}
	return len(b.text)
}

// lineBounds returns the start and end offsets of the line containing off.
func (b *Buffer) lineBounds(off int) (int, int) {
	start := off
	for start > 0 && b.text[start-1] != '\n' {
		start--
	}
	end := off
	for end < len(b.text) && b.text[end] != '\n' {
		end++
	}
	return start, end
}

// Line returns the text of the line holding the caret.
func (b *Buffer) Line() string {
	s, e := b.lineBounds(b.start)
	return string(b.text[s:e])
}

// LineCol returns the zero-based line and rune column of off.
func (b *Buffer) LineCol(off int) (int, int) {
	off = b.clamp(off)
	line := strings.Count(string(b.text[:off]), "\n")
	s, _ := b.lineBounds(off)
	return line, off - s
}
