package textutil

import "strings"

// Ellipsize collapses whitespace and shortens s to at most width runes,
// marking a cut with "...".
func Ellipsize(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return strings.TrimSpace(string(runes[:width-3])) + "..."
}
