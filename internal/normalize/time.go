// Package normalize converts Action Network event fields into the shapes the
// destination platforms expect.
package normalize

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// Action Network labels Central wall-clock times as UTC, so every naive or
// "Z"-suffixed timestamp is re-read as America/Chicago.
var central = mustLoadLocation("America/Chicago")

// DefaultDuration is the length assumed for events without an end time.
const DefaultDuration = 2 * time.Hour

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ToUTC converts an Action Network timestamp to an ISO-8601 UTC string.
//
// A trailing "Z" is stripped and the remaining wall clock is read as Central
// time. Strings that already carry a numeric offset are returned unchanged.
// Naive strings are read as Central time. Anything unparseable is returned
// as-is.
func ToUTC(raw string) string {
	if raw == "" {
		return ""
	}

	if strings.HasSuffix(raw, "Z") {
		return centralToUTC(strings.TrimSuffix(raw, "Z"), raw)
	}

	if hasOffset(raw) {
		return raw
	}

	return centralToUTC(raw, raw)
}

// hasOffset mirrors the offset check used against Action Network payloads:
// any "+" in the string, or a "-" after the last "T".
func hasOffset(raw string) bool {
	if strings.Contains(raw, "+") {
		return true
	}
	timePart := raw
	if i := strings.LastIndex(raw, "T"); i >= 0 {
		timePart = raw[i+1:]
	}
	return strings.Contains(timePart, "-")
}

func centralToUTC(naive, original string) string {
	t, ok := parseNaive(naive)
	if !ok {
		return original
	}
	local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), central)
	return FormatUTC(local)
}

func parseNaive(s string) (time.Time, bool) {
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTimestamp parses an ISO-8601 timestamp with a "Z" or numeric offset.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatUTC renders t in UTC using a "Z" suffix.
func FormatUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}

// EndOrDefault returns end, or start plus DefaultDuration when end is empty.
// If start cannot be parsed the end falls back to start.
func EndOrDefault(start, end string) string {
	if end != "" || start == "" {
		return end
	}

	if t, ok := ParseTimestamp(start); ok {
		return t.Add(DefaultDuration).Format("2006-01-02T15:04:05.999999Z07:00")
	}
	if t, ok := parseNaive(start); ok {
		return t.Add(DefaultDuration).Format("2006-01-02T15:04:05.999999")
	}
	return start
}
