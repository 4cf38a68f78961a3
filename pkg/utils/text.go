// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged. Truncation never splits a rune.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// JoinSample joins terms with spaces and truncates the result to maxLen.
func JoinSample(terms []string, maxLen int) string {
	return Truncate(strings.Join(terms, " "), maxLen)
}
