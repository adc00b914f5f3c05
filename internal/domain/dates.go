package domain

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order. Layouts without a zone are read as UTC;
// fractional seconds are accepted after any seconds field. Slash dates with
// the year last are month-first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseDate parses a hotspot timestamp. A zone offset is dropped and the
// local wall-clock reading is kept, labeled UTC, so the calendar day is the
// one written in the file.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse date: empty value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return wallClock(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date: unrecognized format %q", s)
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DeriveCalendar computes the calendar fields of t in UTC.
func DeriveCalendar(t time.Time) Calendar {
	t = t.UTC()
	year, month, day := t.Date()
	_, week := t.ISOWeek()
	return Calendar{
		Year:      year,
		Month:     int(month),
		YearMonth: fmt.Sprintf("%04d-%02d", year, int(month)),
		Day:       time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		ISOWeek:   week,
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
