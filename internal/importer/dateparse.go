package importer

import (
	"strconv"
	"strings"
	"time"
)

// ParseCreatedAt parses the free-text "created at" value found in lead
// spreadsheets. The source files mix two regional conventions with no
// reliable marker: Brazilian DD/MM/YYYY with a 24-hour clock and American
// MM/DD/YYYY with a 12-hour am/pm clock. The instant is constructed in UTC
// so imports are stable regardless of the server's local zone.
//
// Returns ok=false for anything unparseable. Never panics and never treats
// a bad value as an error worth aborting a batch over.
func ParseCreatedAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	datePart := raw
	timePart := ""
	if idx := strings.Index(raw, " "); idx >= 0 {
		datePart = raw[:idx]
		timePart = strings.TrimSpace(raw[idx+1:])
	}

	fields := strings.Split(datePart, "/")
	if len(fields) != 3 {
		return time.Time{}, false
	}
	a, errA := strconv.Atoi(fields[0])
	b, errB := strconv.Atoi(fields[1])
	c, errC := strconv.Atoi(fields[2])
	if errA != nil || errB != nil || errC != nil {
		return time.Time{}, false
	}

	// Disambiguate day vs month by magnitude. When both components fit in a
	// month (≤12) the value is genuinely ambiguous and month-first wins,
	// matching the dominant export format seen in practice.
	var day, month, year int
	switch {
	case a > 12:
		day, month, year = a, b, c
	case b > 12:
		month, day, year = a, b, c
	default:
		month, day, year = a, b, c
	}

	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 || year > 2100 {
		return time.Time{}, false
	}

	hour, minute, ok := parseClock(timePart)
	if !ok {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 → Mar 2); reject those.
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// parseClock interprets the optional time portion. Accepts 24-hour "H:MM" /
// "HH:MM" and 12-hour "H:MM(am|pm)". Any other shape is treated as midnight
// rather than an error; out-of-range components are rejected.
func parseClock(timePart string) (hour, minute int, ok bool) {
	if timePart == "" {
		return 0, 0, true
	}

	v := strings.ToLower(timePart)
	meridiem := ""
	if strings.HasSuffix(v, "am") || strings.HasSuffix(v, "pm") {
		meridiem = v[len(v)-2:]
		v = v[:len(v)-2]
	}

	parts := strings.Split(v, ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		// Unrecognized shape: fall back to midnight, not an error.
		return 0, 0, true
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil {
		return 0, 0, true
	}

	if meridiem == "pm" && h != 12 {
		h += 12
	}
	if meridiem == "am" && h == 12 {
		h = 0
	}

	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
