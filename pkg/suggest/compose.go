package suggest

import (
	"html"
	"strings"

	"github.com/fsoft72/ghostwrite/internal/utils"
)

// Composition is what the overlay layer renders on top of the editing surface:
// the buffer split at the caret with the ghost text in between.
type Composition struct {
	Before    string
	Ghost     string
	After     string
	Separator bool
}

// Compose builds the overlay content for text with the caret at rune offset caret.
func Compose(text string, caret int, s Session) Composition {
	c := Composition{
		Before: utils.RuneSlice(text, 0, caret),
		After:  utils.RuneSliceFrom(text, caret),
	}
	if s.Visible {
		c.Ghost = s.Ghost()
	}
	c.Separator = utils.NeedsSeparator(c.Before, c.Ghost)
	return c
}

// HasGhost reports whether any ghost text is shown.
func (c Composition) HasGhost() bool { return c.Ghost != "" }

// GhostText returns the ghost including the separating space, if any.
func (c Composition) GhostText() string {
	if c.Ghost == "" {
		return ""
	}
	if c.Separator {
		return " " + c.Ghost
	}
	return c.Ghost
}

// Plain returns the composition as unescaped text.
func (c Composition) Plain() string {
	return c.Before + c.GhostText() + c.After
}

// HTML renders the composition for a markup overlay. Every part is escaped so
// buffer content never affects the structure, and line breaks become <br>.
func (c Composition) HTML() string {
	var sb strings.Builder
	sb.WriteString(escapeMarkup(c.Before))
	if c.Ghost != "" {
		sb.WriteString(`<span class="ghost-text">`)
		sb.WriteString(escapeMarkup(c.GhostText()))
		sb.WriteString(`</span>`)
	}
	sb.WriteString(escapeMarkup(c.After))
	return sb.String()
}

func escapeMarkup(s string) string {
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// Overlay keeps the last composition and mirrors the scroll offsets of the editing surface,
// so both layers stay aligned.
type Overlay struct {
	Composition Composition
	ScrollTop   int
	ScrollLeft  int
}

// Update replaces the rendered composition and reports whether it changed.
func (o *Overlay) Update(c Composition) bool {
	if o.Composition == c {
		return false
	}
	o.Composition = c
	return true
}

// Mirror copies both scroll axes of the editing surface.
func (o *Overlay) Mirror(top, left int) {
	o.ScrollTop = top
	o.ScrollLeft = left
}
