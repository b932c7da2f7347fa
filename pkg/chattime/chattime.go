// Package chattime parses the handful of timestamp formats vendor chat
// exports use, all interpreted as UTC (spec.md §4.4).
package chattime

import (
	"strings"
	"time"
)

// layouts is the ordered list of formats tried against a heading's text,
// after an optional trailing " UTC" is stripped.
var layouts = []string{
	"2006-01-02 15:04:05",
	"Jan 02, 2006 15:04:05",
	"01/02/2006 15:04:05",
}

// TryParse parses s against each layout in order, returning the first
// match as a UTC time. Returns ok=false if none parse.
func TryParse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " UTC")
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
