package exporter

import (
	"fmt"
	"regexp"
	"strings"
)

// formatShare formats a percentage for CSV output with exactly 2 decimal places
func formatShare(part, total int) string {
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(part)*100/float64(total))
}

// formatInt formats a count for CSV output
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a section title into a file-name fragment
func slug(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "_")
	s = strings.Trim(s, "_")
	if len(s) > 48 {
		s = strings.TrimRight(s[:48], "_")
	}
	if s == "" {
		return "section"
	}
	return s
}

// sheetName builds a workbook sheet name from the ordinal and title.
// Excel limits names to 31 characters and forbids : \ / ? * [ ].
func sheetName(ordinal int, title string) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return ' '
		}
		return r
	}, title)
	name := fmt.Sprintf("S%d %s", ordinal, strings.Join(strings.Fields(clean), " "))
	if runes := []rune(name); len(runes) > 31 {
		name = strings.TrimSpace(string(runes[:31]))
	}
	return name
}
