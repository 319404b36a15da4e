package buffer

// Dir is a caret movement direction.
type Dir int

const (
	DirLeft Dir = iota
	DirRight
	DirUp
	DirDown
	DirHome
	DirEnd
)

// Move moves the caret and collapses the selection. Left and Right collapse an
// existing selection onto its edge first, like most text fields do.
// It reports whether the caret moved.
func (b *Buffer) Move(d Dir) bool {
	prevStart, prevEnd := b.start, b.end
	switch d {
	case DirLeft:
		if b.HasSelection() {
			b.end = b.start
			break
		}
		b.start = b.prevStop(b.start)
		b.end = b.start
	case DirRight:
		if b.HasSelection() {
			b.start = b.end
			break
		}
		b.end = b.nextStop(b.end)
		b.start = b.end
	case DirHome:
		s, _ := b.lineBounds(b.start)
		b.start, b.end = s, s
	case DirEnd:
		_, e := b.lineBounds(b.end)
		b.start, b.end = e, e
	case DirUp:
		b.verticalMove(-1)
	case DirDown:
		b.verticalMove(1)
	}
	return b.start != prevStart || b.end != prevEnd
}

// verticalMove keeps the rune column, clamped to the target line length.
func (b *Buffer) verticalMove(delta int) {
	s, e := b.lineBounds(b.start)
	col := b.start - s
	var target int
	switch {
	case delta < 0:
		if s == 0 {
			target = 0
			break
		}
		ps, pe := b.lineBounds(s - 1)
		target = min(ps+col, pe)
	default:
		if e >= len(b.text) {
			target = len(b.text)
			break
		}
		ns, ne := b.lineBounds(e + 1)
		target = min(ns+col, ne)
	}
	b.start, b.end = target, target
}
