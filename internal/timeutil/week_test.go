package timeutil_test

import (
	"testing"
	"time"

	"github.com/havenlabs/haven-core-go/internal/timeutil"
)

func TestWeekStart_MidWeek(t *testing.T) {
	// 2024-06-12 is a Wednesday; the week began Saturday 2024-06-08.
	d := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)
	ws := timeutil.WeekStart(d)

	if got := timeutil.FormatISODate(ws); got != "2024-06-08" {
		t.Errorf("expected week start 2024-06-08, got %s", got)
	}
	if ws.Hour() != 0 || ws.Minute() != 0 || ws.Second() != 0 || ws.Nanosecond() != 0 {
		t.Errorf("expected midnight truncation, got %v", ws)
	}
}

func TestWeekStart_OnSaturday(t *testing.T) {
	d := time.Date(2024, 6, 8, 23, 59, 0, 0, time.UTC)
	ws := timeutil.WeekStart(d)

	if got := timeutil.FormatISODate(ws); got != "2024-06-08" {
		t.Errorf("a Saturday starts its own week, got %s", got)
	}
}

func TestWeekEnd_MidWeek(t *testing.T) {
	d := time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)
	we := timeutil.WeekEnd(d)

	if got := timeutil.FormatISODate(we); got != "2024-06-14" {
		t.Errorf("expected week end 2024-06-14, got %s", got)
	}
	if we.Hour() != 23 || we.Minute() != 59 || we.Second() != 59 || we.Nanosecond() != 999_000_000 {
		t.Errorf("expected 23:59:59.999, got %v", we)
	}
}

func TestWeekBoundaries_FixedPoint(t *testing.T) {
	for _, d := range []time.Time{
		time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
	} {
		ws := timeutil.WeekStart(d)
		if got := timeutil.WeekStart(timeutil.WeekEnd(ws)); !got.Equal(ws) {
			t.Errorf("weekStart(weekEnd(weekStart(%v))) = %v, want %v", d, got, ws)
		}
	}
}

func TestDaysInWeek_SevenDays(t *testing.T) {
	ws := timeutil.WeekStart(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))

	var days []timeutil.Day
	for d := range timeutil.DaysInWeek(ws) {
		days = append(days, d)
	}

	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[0].ISO != "2024-06-08" {
		t.Errorf("expected first day 2024-06-08, got %s", days[0].ISO)
	}
	if days[6].ISO != "2024-06-14" {
		t.Errorf("expected last day 2024-06-14, got %s", days[6].ISO)
	}
}

func TestDaysInWeek_Restartable(t *testing.T) {
	ws := timeutil.WeekStart(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	seq := timeutil.DaysInWeek(ws)

	count := 0
	for range seq {
		count++
		break // abandon early
	}
	for range seq {
		count++
	}

	if count != 8 {
		t.Errorf("expected a restartable sequence (1 + 7 iterations), got %d", count)
	}
}

func TestDaysInWeek_CrossesMonthBoundary(t *testing.T) {
	// Week of Saturday 2024-06-29 runs into July.
	ws := timeutil.WeekStart(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))

	var last timeutil.Day
	for d := range timeutil.DaysInWeek(ws) {
		last = d
	}
	if last.ISO != "2024-07-05" {
		t.Errorf("expected last day 2024-07-05, got %s", last.ISO)
	}
}

func TestFormatISODate_UsesLocalFields(t *testing.T) {
	// 23:30 in UTC-5 is the next day in UTC; the local date must win.
	loc := time.FixedZone("UTC-5", -5*3600)
	d := time.Date(2024, 6, 12, 23, 30, 0, 0, loc)

	if got := timeutil.FormatISODate(d); got != "2024-06-12" {
		t.Errorf("expected local date 2024-06-12, got %s", got)
	}
}

func TestMonthStart(t *testing.T) {
	d := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)
	ms := timeutil.MonthStart(d)

	if got := timeutil.FormatISODate(ms); got != "2024-06-01" {
		t.Errorf("expected 2024-06-01, got %s", got)
	}
}
