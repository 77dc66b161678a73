// Package segment splits transcript text into sentence-sized parts.
package segment

import "strings"

const (
	// DefaultDelimiters close a sentence when splitting a transcript.
	DefaultDelimiters = ".?;"

	// DefaultTerminal is the punctuation that marks a finalized sentence as complete.
	DefaultTerminal = ".?;!:"
)

// Split cuts text at every delimiter rune, keeping the delimiter on the part it closes.
// Parts are trimmed; parts with no content before their delimiter are dropped, and a
// trailing remainder without a delimiter is kept when non-empty.
func Split(text, delimiters string) []string {
	parts := make([]string, 0, 4)
	var b strings.Builder

	for _, r := range text {
		if !strings.ContainsRune(delimiters, r) {
			b.WriteRune(r)
			continue
		}
		body := b.String()
		b.Reset()
		if strings.TrimSpace(body) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(body+string(r)))
	}

	if tail := strings.TrimSpace(b.String()); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

// EndsWithAny reports whether text ends with one of the runes in set.
func EndsWithAny(text, set string) bool {
	text = strings.TrimRightFunc(text, isSpace)
	if text == "" {
		return false
	}
	last := []rune(text)
	return strings.ContainsRune(set, last[len(last)-1])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
