package http

import (
	"strconv"
	"strings"

	"bommel/internal/core"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// modeKey is the tree cache key of a statistics mode.
func modeKey(m core.StatisticsMode) string {
	return "drafts=" + strconv.FormatBool(m.IncludeDrafts) + ",aggregate=" + strconv.FormatBool(m.Aggregate)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
