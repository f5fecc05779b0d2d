package domain

import (
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes the sheet produces.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate reduces a date or timestamp to YYYY-MM-DD.
func NormalizeDate(raw string) string {
	if t, ok := ParseTime(raw); ok {
		return t.Format("2006-01-02")
	}
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 {
		return raw[:10]
	}
	return raw
}
