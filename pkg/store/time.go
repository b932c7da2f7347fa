package store

import "time"

// timestampLayout is a fixed-width UTC layout so that lexical ordering of
// the TEXT column matches chronological ordering.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// sentinelMinTime is substituted for rows whose stored timestamp fails to
// parse, per spec.md §7's "repaired to a sentinel minimum value at read
// time and logged" policy.
var sentinelMinTime = time.Unix(0, 0).UTC()

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime parses a stored timestamp, repairing failures to the sentinel
// minimum and invoking warn with a log-worthy message.
func parseTime(s string, warn func(string)) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		if warn != nil {
			warn("unparseable stored timestamp " + s + ": " + err.Error())
		}
		return sentinelMinTime
	}
	return t.UTC()
}

func dateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
