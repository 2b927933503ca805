package slanger

import (
	"strings"
	"unicode/utf8"
)

// NotFoundMarker is the reserved text that marks a fallback line.
const NotFoundMarker = "정확한 해석을 찾지 못했습니다"

// MaxLineRunes bounds the length of an interpretation line.
const MaxLineRunes = 140

// FallbackLine returns the designated "no answer" line for term.
func FallbackLine(term string) string {
	return term + ": " + NotFoundMarker + "."
}

// IsFallback reports whether line is a degraded answer that must never be
// cached or stored.
func IsFallback(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	if strings.Contains(trimmed, NotFoundMarker) {
		return true
	}
	return strings.HasSuffix(trimmed, ":")
}

// TruncateLine collapses line onto a single line and cuts it to at most
// MaxLineRunes runes, keeping the start.
func TruncateLine(line string) string {
	line = strings.Join(strings.Fields(line), " ")
	if utf8.RuneCountInString(line) <= MaxLineRunes {
		return line
	}

	n := 0
	for i := range line {
		if n == MaxLineRunes {
			return strings.TrimSpace(line[:i])
		}
		n++
	}
	return line
}
