// Package forecast implements the claim forecasting pipeline: normalization,
// interval statistics, seasonal and trend analysis, product risk, next-claim
// prediction, cost scenarios and the forward risk score.
//
// Every function in this package is pure. The current date is always passed
// in; nothing here reads the clock, logs or performs I/O.
package forecast

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Layouts tried after the structural ISO and DD-MM-YYYY patterns.
var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

const (
	minYear = 1900
	maxYear = 2999
)

// ParseDate converts a loosely typed date into a UTC calendar date.
// It accepts time.Time, *time.Time, strings and numbers (unix milliseconds).
// ok is false for anything it cannot read; it never panics.
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return calendarDate(d)
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return calendarDate(*d)
	case string:
		return parseDateString(d)
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromUnixMillis(f)
	case float64:
		return fromUnixMillis(d)
	case int64:
		return fromUnixMillis(float64(d))
	case int:
		return fromUnixMillis(float64(d))
	}
	return time.Time{}, false
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Structural patterns first
	if isDigitPattern(s, "dddd-dd-dd") {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return calendarDate(t)
		}
		return time.Time{}, false
	}
	if isDigitPattern(s, "dd-dd-dddd") {
		if t, err := time.Parse("02-01-2006", s); err == nil {
			return calendarDate(t)
		}
		return time.Time{}, false
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t)
		}
	}

	// Bare digit strings are unix milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) >= 10 {
		return fromUnixMillis(float64(ms))
	}

	return time.Time{}, false
}

// isDigitPattern matches s against a pattern where 'd' is any ASCII digit.
func isDigitPattern(s, pattern string) bool {
	if len(s) != len(pattern) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if pattern[i] == 'd' {
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		} else if s[i] != pattern[i] {
			return false
		}
	}
	return true
}

func fromUnixMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return time.Time{}, false
	}
	return calendarDate(time.UnixMilli(int64(ms)).UTC())
}

// calendarDate keeps the calendar day as written and drops time and zone.
func calendarDate(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	if y < minYear || y > maxYear {
		return time.Time{}, false
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}
