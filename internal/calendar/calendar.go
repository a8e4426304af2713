// Package calendar answers wall-clock questions about epoch millisecond
// timestamps in an explicitly supplied time zone.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayMillis is the length of a canonical day in milliseconds.
const DayMillis = int64(24 * time.Hour / time.Millisecond)

// Calendar resolves timestamps in a fixed location.
type Calendar struct {
	loc *time.Location
}

// New returns a calendar for loc. A nil loc means UTC.
func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's time zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Time converts a timestamp to a time in the calendar's location.
func (c Calendar) Time(ts int64) time.Time {
	return time.UnixMilli(ts).In(c.Location())
}

// Weekday returns the local weekday of ts.
func (c Calendar) Weekday(ts int64) time.Weekday {
	return c.Time(ts).Weekday()
}

// InDST reports whether ts falls in daylight saving time.
func (c Calendar) InDST(ts int64) bool {
	return c.Time(ts).IsDST()
}

// AddDays moves ts by n calendar days, keeping the local wall-clock time.
func (c Calendar) AddDays(ts int64, n int) int64 {
	return c.Time(ts).AddDate(0, 0, n).UnixMilli()
}

// StartOfDay returns local midnight of the day containing ts.
func (c Calendar) StartOfDay(ts int64) int64 {
	t := c.Time(ts)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location()).UnixMilli()
}

// EndOfDay returns the last millisecond (23:59:59.999) of the local day
// containing ts.
func (c Calendar) EndOfDay(ts int64) int64 {
	return c.StartOfDay(c.AddDays(c.StartOfDay(ts), 1)) - 1
}

// Accepted layouts for ParseTime, most specific first.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseTime parses epoch milliseconds or a local date/time such as
// "2006-01-02 15:04:05" in the calendar's location.
func (c Calendar) ParseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, c.Location()); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}
