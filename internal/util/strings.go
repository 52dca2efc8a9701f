package util

import "strings"

// NormalizeKey lowercases and trims a user-supplied identifier so lookups
// are insensitive to casing and stray whitespace.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
