package dateutil

import (
	"fmt"
	"time"
)

// Layout is the canonical calendar date format. Zero-padded with a 4-digit
// year, so lexicographic order equals chronological order.
const Layout = "2006-01-02"

var weekdayLabels = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// StartOfDay returns the start of the day (00:00:00) for the given date
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// StartOfWeek returns the Monday of the week for the given date
func StartOfWeek(date time.Time) time.Time {
	return StartOfDay(date.AddDate(0, 0, -WeekdayIndex(date)))
}

// EndOfWeek returns the Sunday of the week for the given date (start of day)
func EndOfWeek(date time.Time) time.Time {
	return StartOfWeek(date).AddDate(0, 0, 6)
}

// WeekdayIndex returns the weekday with Monday = 0 and Sunday = 6
func WeekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// IsWeekday returns true if the date is Monday-Friday
func IsWeekday(date time.Time) bool {
	return WeekdayIndex(date) < 5
}

// WeekdayLabel returns the display label (周一..周日) for the date
func WeekdayLabel(date time.Time) string {
	return weekdayLabels[WeekdayIndex(date)]
}

// ParseDate parses a canonical YYYY-MM-DD string. Anything that does not
// round-trip through Layout (e.g. "2024-1-5") is rejected.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if t.Format(Layout) != s {
		return time.Time{}, fmt.Errorf("invalid date %q: not in %s form", s, Layout)
	}
	return t, nil
}

// IsValidDate reports whether s is a canonical calendar date
func IsValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// Format formats a time as a canonical calendar date
func Format(date time.Time) string {
	return date.Format(Layout)
}

// WeekRange returns the Monday..Sunday range containing date
func WeekRange(date time.Time) (start, end string) {
	return Format(StartOfWeek(date)), Format(EndOfWeek(date))
}

// MonthRange returns the first..last day of the month containing date
func MonthRange(date time.Time) (start, end string) {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	last := first.AddDate(0, 1, -1)
	return Format(first), Format(last)
}

// Today returns today's date (start of day)
func Today() time.Time {
	return StartOfDay(time.Now())
}
