package types

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"02 Jan 2006",
}

// ParseDate parses an extracted date string. The second return is false when
// the value is empty or matches none of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDay parses like ParseDate and drops the time of day, keeping the
// calendar date as written. Period checks compare whole days.
func ParseDay(s string) (time.Time, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}
