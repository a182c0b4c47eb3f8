// Package utils provides shared helpers for text, vector math, and logging.
package utils

import "unicode/utf8"

// Truncate shortens s to at most max bytes, cutting on a rune boundary and
// appending "..." when anything was removed. Non-positive max returns s
// unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
