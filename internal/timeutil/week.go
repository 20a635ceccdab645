// Package timeutil implements the platform's Saturday-start week calendar.
// All day math uses local calendar fields, never UTC conversion, so day
// boundaries line up with what users see.
package timeutil

import (
	"iter"
	"time"
)

// Day is one calendar day inside a week window.
type Day struct {
	Date time.Time
	ISO  string // YYYY-MM-DD
}

// WeekStart returns the Saturday at or before t, truncated to local midnight.
func WeekStart(t time.Time) time.Time {
	// Sunday=0 .. Saturday=6; Saturday is day zero of our week.
	back := (int(t.Weekday()) + 1) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-back, 0, 0, 0, 0, t.Location())
}

// WeekEnd returns the Friday following WeekStart(t), at 23:59:59.999,
// an inclusive upper bound for range queries.
func WeekEnd(t time.Time) time.Time {
	ws := WeekStart(t)
	y, m, d := ws.Date()
	return time.Date(y, m, d+6, 23, 59, 59, 999_000_000, ws.Location())
}

// DaysInWeek yields the 7 days starting at weekStart. The sequence is lazy
// and can be ranged over any number of times.
func DaysInWeek(weekStart time.Time) iter.Seq[Day] {
	return func(yield func(Day) bool) {
		y, m, d := weekStart.Date()
		for i := 0; i < 7; i++ {
			day := time.Date(y, m, d+i, 0, 0, 0, 0, weekStart.Location())
			if !yield(Day{Date: day, ISO: FormatISODate(day)}) {
				return
			}
		}
	}
}

// FormatISODate formats t as YYYY-MM-DD using its own calendar fields.
func FormatISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthStart returns the first instant of the calendar month containing t.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// FormatMonth formats t as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.Format("2006-01")
}
