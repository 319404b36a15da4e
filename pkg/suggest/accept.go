package suggest

import (
	"fmt"
	"strings"

	"github.com/fsoft72/ghostwrite/internal/utils"
)

// State is the position of the acceptance state machine.
type State struct {
	Showing bool
	Cursor  int
}

func (s State) String() string {
	if !s.Showing {
		return "Idle"
	}
	return fmt.Sprintf("Showing(%d)", s.Cursor)
}

// Key is a key signal relevant to the suggestion lifecycle.
type Key int

const (
	KeyOther Key = iota
	KeyAccept
	KeyEscape
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
)

var keyNames = map[string]Key{
	"tab":        KeyAccept,
	"escape":     KeyEscape,
	"esc":        KeyEscape,
	"arrowleft":  KeyLeft,
	"left":       KeyLeft,
	"arrowright": KeyRight,
	"right":      KeyRight,
	"arrowup":    KeyUp,
	"up":         KeyUp,
	"arrowdown":  KeyDown,
	"down":       KeyDown,
	"home":       KeyHome,
	"end":        KeyEnd,
	"pageup":     KeyPageUp,
	"pgup":       KeyPageUp,
	"pagedown":   KeyPageDown,
	"pgdown":     KeyPageDown,
}

// ParseKey maps DOM key names ("Tab", "ArrowLeft") and terminal key names ("tab", "left")
// to a Key. Anything else is KeyOther.
func ParseKey(name string) Key {
	if k, ok := keyNames[strings.ToLower(name)]; ok {
		return k
	}
	return KeyOther
}

// IsNavigation reports whether the key moves the caret.
func (k Key) IsNavigation() bool {
	return k >= KeyLeft && k <= KeyPageDown
}

// State returns the current state of the acceptance state machine.
func (c *Controller) State() State {
	if !c.session.Visible {
		return State{}
	}
	return State{Showing: true, Cursor: c.session.Cursor}
}

// HandleKey routes a key signal. It reports whether the key was consumed, in which case
// the host must suppress its default action (Tab focus change, Escape).
// Navigation keys dismiss the suggestion but are never consumed.
func (c *Controller) HandleKey(k Key) bool {
	switch {
	case k == KeyAccept:
		return c.Accept()
	case k == KeyEscape:
		return c.Dismiss()
	case k.IsNavigation():
		c.OnNavigate()
	}
	return false
}

// Accept inserts the current fragment at the caret: Showing(i) -> Showing(i+1), or Idle after
// the last fragment. It reports false in Idle.
func (c *Controller) Accept() bool {
	frag, ok := c.session.Current()
	if !ok {
		return false
	}

	text := c.buf.Text()
	start, end := c.buf.Caret()
	before := utils.RuneSlice(text, 0, start)
	after := utils.RuneSliceFrom(text, end)

	insert := frag
	if utils.NeedsSeparator(before, frag) {
		insert = " " + frag
	}
	c.buf.SetText(before + insert + after)
	caret := utils.RuneLen(before) + utils.RuneLen(insert)
	c.buf.SetCaret(caret, caret)

	c.gen++
	if c.session.Advance() {
		c.log.Debug("Suggestion fully accepted")
	}
	c.emit(ContentChanged{Text: c.buf.Text()})
	c.render()
	return true
}

// Dismiss drops a shown suggestion: Showing(*) -> Idle. It reports false in Idle.
// The next request skips the cache so a rejected completion is not served again.
func (c *Controller) Dismiss() bool {
	if !c.session.Visible {
		return false
	}
	c.gen++
	c.session.Clear()
	c.bypassCache = true
	c.render()
	return true
}
