package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unambiguous textual layouts tried after the numeric forms.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
}

// numericDate matches A-B-C, A/B/C, A.B.C and the two-token forms
// YYYY-MM and MM-YYYY.
var numericDate = regexp.MustCompile(`^(\d{1,4})[-/.](\d{1,4})(?:[-/.](\d{1,4}))?$`)

// excelEpoch is serial day 0 of the 1900 date system for serials past the
// fictitious 1900-02-29.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31 in the 1900 date system.
const maxSerial = 2958465

// Period converts a raw cell into a YYYY-MM billing period.
// ok is false when no calendar date can be derived.
func Period(v any) (string, bool) {
	t, ok := Date(v)
	if !ok {
		return "", false
	}
	return FormatPeriod(t), true
}

// FormatPeriod renders t as YYYY-MM in UTC.
func FormatPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Date accepts a time.Time, a spreadsheet serial number or a date string.
func Date(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case string:
		return ParseDate(x)
	}
	if f, ok := number(v); ok {
		return SerialDate(f)
	}
	return time.Time{}, false
}

// SerialDate converts a 1900-system spreadsheet serial into a UTC date.
// Fractional days (time of day) are ignored.
func SerialDate(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > maxSerial {
		return time.Time{}, false
	}
	days := int(math.Floor(f))
	if days < 60 {
		days++
	}
	return excelEpoch.AddDate(0, 0, days), true
}

// ParseDate parses a free-text date. Numeric forms are disambiguated by the
// magnitude of the first token: above 1900 it is read year-first, otherwise
// day-first (or month-first for the two-token MM-YYYY form).
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	datePart := s
	if i := strings.IndexAny(s, "T "); i > 0 {
		datePart = s[:i]
	}
	if m := numericDate.FindStringSubmatch(datePart); m != nil {
		return fromTokens(m[1], m[2], m[3])
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return SerialDate(f)
	}
	return time.Time{}, false
}

func fromTokens(a, b, c string) (time.Time, bool) {
	first, _ := strconv.Atoi(a)
	second, _ := strconv.Atoi(b)

	var y, m, d int
	if c != "" && len(b) > 2 {
		return time.Time{}, false
	}
	switch {
	case c == "" && first > 1900:
		y, m, d = first, second, 1
	case c == "":
		m, y, d = first, second, 1
	case first > 1900:
		third, _ := strconv.Atoi(c)
		y, m, d = first, second, third
	default:
		third, _ := strconv.Atoi(c)
		d, m, y = first, second, third
	}
	if y < 100 {
		y += 2000
	}
	return validDate(y, m, d)
}

func validDate(y, m, d int) (time.Time, bool) {
	if y < 1 || m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. Feb 30); reject it.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}
