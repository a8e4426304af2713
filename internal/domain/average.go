package domain

import (
	"fmt"
	"strings"
	"time"
)

// AverageMode selects which days are folded onto the canonical axis.
type AverageMode int

const (
	AverageDay AverageMode = iota
	AverageWeek
	AverageMonday
	AverageTuesday
	AverageWednesday
	AverageThursday
	AverageFriday
	AverageSaturday
	AverageSunday
)

type averageInfo struct {
	names   []string // English first, then German
	weekday time.Weekday
}

var averageTable = [...]averageInfo{
	AverageDay:       {[]string{"Day", "Tag"}, -1},
	AverageWeek:      {[]string{"Week", "Woche"}, -1},
	AverageMonday:    {[]string{"Monday", "Montag"}, time.Monday},
	AverageTuesday:   {[]string{"Tuesday", "Dienstag"}, time.Tuesday},
	AverageWednesday: {[]string{"Wednesday", "Mittwoch"}, time.Wednesday},
	AverageThursday:  {[]string{"Thursday", "Donnerstag"}, time.Thursday},
	AverageFriday:    {[]string{"Friday", "Freitag"}, time.Friday},
	AverageSaturday:  {[]string{"Saturday", "Samstag"}, time.Saturday},
	AverageSunday:    {[]string{"Sunday", "Sonntag"}, time.Sunday},
}

// AverageModes returns every mode in declaration order.
func AverageModes() []AverageMode {
	out := make([]AverageMode, len(averageTable))
	for i := range averageTable {
		out[i] = AverageMode(i)
	}
	return out
}

// IsValid reports whether m is a known mode.
func (m AverageMode) IsValid() bool {
	return m >= 0 && int(m) < len(averageTable)
}

// Name returns the English name.
func (m AverageMode) Name() string {
	if !m.IsValid() {
		return fmt.Sprintf("AverageMode(%d)", int(m))
	}
	return averageTable[m].names[0]
}

// String returns the English name.
func (m AverageMode) String() string {
	return m.Name()
}

// Weekday returns the selected weekday and true for single-weekday modes.
func (m AverageMode) Weekday() (time.Weekday, bool) {
	if !m.IsValid() || averageTable[m].weekday < 0 {
		return 0, false
	}
	return averageTable[m].weekday, true
}

// IsWeek reports whether m folds whole Monday-to-Sunday weeks.
func (m AverageMode) IsWeek() bool {
	return m == AverageWeek
}

// AverageModeForWeekday returns the single-weekday mode for d.
func AverageModeForWeekday(d time.Weekday) AverageMode {
	if d == time.Sunday {
		return AverageSunday
	}
	return AverageMonday + AverageMode(d-time.Monday)
}

// ParseAverageMode resolves a mode by case-insensitive name prefix in English
// or German ("mo" -> Monday, "woche" -> Week).
func ParseAverageMode(s string) (AverageMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty average mode")
	}
	for i, info := range averageTable {
		for _, name := range info.names {
			if strings.HasPrefix(strings.ToLower(name), s) {
				return AverageMode(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown average mode %q", s)
}
