// Package ui renders engine results for a terminal when --pretty is set.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Truncate shortens s to maxLen cells, ending in "…" when cut.
func Truncate(s string, maxLen int) string {
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > maxLen {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// PadRight pads s with spaces to width cells.
func PadRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// JoinNonEmpty joins the non-empty items with sep.
func JoinNonEmpty(sep string, items ...string) string {
	filtered := items[:0:0]
	for _, item := range items {
		if item != "" {
			filtered = append(filtered, item)
		}
	}
	return strings.Join(filtered, sep)
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
