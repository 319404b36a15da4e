package suggest

import "strings"

// Session is the live state of one shown suggestion and how much of it was accepted.
// Visible is true iff Cursor < len(Fragments) and the session has not been cleared.
type Session struct {
	Source    string
	Fragments []string
	Cursor    int
	Visible   bool
}

// NewSession segments a raw completion into a fresh session.
// The session is invisible when the completion has no fragments.
func NewSession(source string) Session {
	frags := Segment(source)
	return Session{
		Source:    source,
		Fragments: frags,
		Visible:   len(frags) > 0,
	}
}

// Clear resets the session to the empty, invisible state.
func (s *Session) Clear() {
	*s = Session{}
}

// Current returns the fragment the next accept would insert.
func (s Session) Current() (string, bool) {
	if !s.Visible || s.Cursor >= len(s.Fragments) {
		return "", false
	}
	return s.Fragments[s.Cursor], true
}

// Advance moves past the current fragment and reports whether the session is now exhausted.
func (s *Session) Advance() bool {
	if s.Cursor < len(s.Fragments) {
		s.Cursor++
	}
	if s.Cursor >= len(s.Fragments) {
		s.Clear()
		return true
	}
	return false
}

// Remaining returns the fragments that are still shown as ghost text.
func (s Session) Remaining() []string {
	if !s.Visible || s.Cursor >= len(s.Fragments) {
		return nil
	}
	return s.Fragments[s.Cursor:]
}

// Ghost returns the remaining fragments joined by a single space.
func (s Session) Ghost() string {
	return strings.Join(s.Remaining(), " ")
}
