// Package utils provides common text utility functions.
package utils

import "strings"

// NormalizeWhitespace collapses all runs of whitespace into single spaces
// and trims the ends.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// Truncate shortens a string to at most maxLength runes, appending an
// ellipsis when something was cut.
func Truncate(str string, maxLength int) string {
	runes := []rune(str)
	if len(runes) <= maxLength {
		return str
	}

	return string(runes[:maxLength]) + "..."
}
