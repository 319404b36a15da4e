package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// StartsWithSpace checks if the first rune of s is whitespace
func StartsWithSpace(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}

// EndsWithSpace checks if the last rune of s is whitespace
func EndsWithSpace(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}

// NeedsSeparator reports whether a single space has to be placed between
// before and next when they are rendered or joined next to each other.
// Both sides must be non-empty and neither may already carry whitespace at the seam.
func NeedsSeparator(before, next string) bool {
	if before == "" || next == "" {
		return false
	}
	return !EndsWithSpace(before) && !StartsWithSpace(next)
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// ClampOffset keeps a rune offset inside [0, RuneLen(s)].
func ClampOffset(s string, off int) int {
	if off < 0 {
		return 0
	}
	if n := RuneLen(s); off > n {
		return n
	}
	return off
}

// RuneSlice returns s[start:end] using rune offsets. Offsets are clamped.
func RuneSlice(s string, start, end int) string {
	start = ClampOffset(s, start)
	end = ClampOffset(s, end)
	if end <= start {
		return ""
	}
	return s[byteOffset(s, start):byteOffset(s, end)]
}

// RuneSliceFrom returns everything from the rune offset start to the end of s.
func RuneSliceFrom(s string, start int) string {
	return s[byteOffset(s, ClampOffset(s, start)):]
}

// byteOffset converts a rune offset into a byte offset, expecting off to be clamped.
func byteOffset(s string, off int) int {
	if off == 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == off {
			return i
		}
		n++
	}
	return len(s)
}
