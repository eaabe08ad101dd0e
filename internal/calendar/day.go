// Package calendar resolves the run's target day to a concrete calendar date.
package calendar

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrDayResolution is returned when a target day cannot be turned into a
// calendar date. A run that hits it never starts fetching.
var ErrDayResolution = eris.New("calendar: day resolution failed")

// RelativeDay is the target date expressed relative to the local "now" of a run.
// The zero value is Today.
type RelativeDay int

const (
	Today RelativeDay = iota
	Yesterday
	Tomorrow
)

// Offset returns the day offset from today, and false for unknown values.
func (d RelativeDay) Offset() (int, bool) {
	switch d {
	case Yesterday:
		return -1, true
	case Today:
		return 0, true
	case Tomorrow:
		return 1, true
	default:
		return 0, false
	}
}

// String returns the lower-case day name.
func (d RelativeDay) String() string {
	switch d {
	case Yesterday:
		return "yesterday"
	case Today:
		return "today"
	case Tomorrow:
		return "tomorrow"
	default:
		return "unknown"
	}
}

// ParseRelativeDay converts a day name (or its short CLI alias) into a RelativeDay.
func ParseRelativeDay(s string) (RelativeDay, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yesterday", "yda", "y":
		return Yesterday, nil
	case "", "today", "now", "tdy", "n":
		return Today, nil
	case "tomorrow", "tmr", "t":
		return Tomorrow, nil
	default:
		return Today, eris.Errorf("calendar: unknown day %q (valid: yesterday, today, tomorrow)", s)
	}
}

// Resolve maps day onto a calendar date relative to now. The result is
// midnight in now's location; month and year boundaries follow AddDate.
func Resolve(day RelativeDay, now time.Time) (time.Time, error) {
	offset, ok := day.Offset()
	if !ok {
		return time.Time{}, eris.Wrapf(ErrDayResolution, "unknown relative day %d", int(day))
	}

	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	date := base.AddDate(0, 0, offset)
	if date.Year() < 1 || date.Year() > 9999 {
		return time.Time{}, eris.Wrapf(ErrDayResolution, "%s from %s is out of range", day, base.Format(time.DateOnly))
	}
	return date, nil
}

// WeekStart returns the Sunday that opens date's week.
func WeekStart(date time.Time) time.Time {
	return date.AddDate(0, 0, -int(date.Weekday()))
}

// WeekRange returns the Sunday and Saturday bounding date's week.
func WeekRange(date time.Time) (time.Time, time.Time) {
	start := WeekStart(date)
	return start, start.AddDate(0, 0, 6)
}
