package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is applied to display names, trip and pin names, and per-trip nicknames.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
