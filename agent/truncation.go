package agent

import (
	"fmt"
	"unicode/utf8"
)

// truncateMiddle keeps the head and tail of s within maxChars bytes and
// notes how much was removed. Cuts are moved to rune boundaries.
func truncateMiddle(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	half := maxChars / 2
	head := s[:runeBoundary(s, half)]
	tail := s[runeBoundary(s, len(s)-half):]
	removed := len(s) - len(head) - len(tail)
	return head +
		fmt.Sprintf("\n\n[... %d characters omitted. Use read_file to see the whole file ...]\n\n", removed) +
		tail
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// runeBoundary moves i back to the start of the rune containing it.
func runeBoundary(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
