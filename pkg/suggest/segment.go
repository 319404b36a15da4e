package suggest

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dlclark/regexp2"
)

// boundaryPattern matches the whitespace between two fragments: either after a period that is
// followed by an upper-case letter, or a blank line.
const boundaryPattern = `(?<=\.)\s+(?=\p{Lu})|\n[ \t]*\n\s*`

var boundary = regexp2.MustCompile(boundaryPattern, regexp2.None)

// Segment splits a completion into the fragments the user accepts one at a time.
// Pieces are trimmed and empty ones dropped, order is kept.
// Text without any boundary yields a single fragment, blank text yields none.
func Segment(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var pieces []string
	last := 0

	// regexp2 reports match positions in runes, not bytes
	m, err := boundary.FindStringMatch(text)
	for err == nil && m != nil {
		pieces = appendFragment(pieces, string(runes[last:m.Index]))
		last = m.Index + m.Length
		m, err = boundary.FindNextMatch(m)
	}
	if err != nil {
		log.Errorf("Segmenting completion: %v", err)
		return []string{strings.TrimSpace(text)}
	}
	return appendFragment(pieces, string(runes[last:]))
}

func appendFragment(pieces []string, piece string) []string {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return pieces
	}
	return append(pieces, piece)
}
