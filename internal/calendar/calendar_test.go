package calendar

import (
	"math"
	"testing"
	"time"
)

func monFri() Calendar {
	return Default()
}

// TestDueTimeWallClock tests plain wall-clock addition
func TestDueTimeWallClock(t *testing.T) {
	cal := monFri()
	start := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC) // Friday 16:00

	tests := []struct {
		name  string
		hours float64
		want  time.Time
	}{
		{"Zero hours", 0, start},
		{"One hour", 1, start.Add(time.Hour)},
		{"Across weekend", 72, start.Add(72 * time.Hour)},
		{"Fractional", 1.5, start.Add(90 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due, degraded := cal.DueTime(start, tt.hours, false)
			if degraded {
				t.Error("Expected no degradation for wall-clock mode")
			}
			if !due.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, due)
			}
		})
	}
}

// TestDueTimeBusinessHoursWalk asserts the exact walked value for a
// deadline created late on a Friday: one hour remains Friday, then
// 8 hours Monday, 8 hours Tuesday, and the final 7 hours land the due
// time at Wednesday 16:00.
func TestDueTimeBusinessHoursWalk(t *testing.T) {
	cal := monFri()
	start := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC) // Friday 16:00

	due, degraded := cal.DueTime(start, 24, true)
	if degraded {
		t.Fatal("Expected no degradation")
	}

	want := time.Date(2026, 3, 11, 16, 0, 0, 0, time.UTC) // Wednesday 16:00
	if !due.Equal(want) {
		t.Errorf("Expected due %v, got %v", want, due)
	}
}

// TestDueTimeSkipsHolidays tests that holidays are not consumed
func TestDueTimeSkipsHolidays(t *testing.T) {
	cal := monFri()
	cal.Holidays = map[string]bool{"2026-03-09": true} // Monday

	start := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC) // Friday 16:00
	due, degraded := cal.DueTime(start, 9, true)
	if degraded {
		t.Fatal("Expected no degradation")
	}

	// 1h Friday, Monday is a holiday, 8h Tuesday -> Tuesday 17:00... the
	// final hour lands exactly at day end, so due is Tuesday 17:00.
	want := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("Expected due %v, got %v", want, due)
	}
}

// TestDueTimeStartOutsideWorkday tests a start before and after hours
func TestDueTimeStartOutsideWorkday(t *testing.T) {
	cal := monFri()

	// Monday 06:00 -> clamps to 09:00, 4 hours -> 13:00
	early := time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)
	due, _ := cal.DueTime(early, 4, true)
	want := time.Date(2026, 3, 9, 13, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("Expected %v, got %v", want, due)
	}

	// Monday 20:00 -> next working day 09:00, 4 hours -> Tuesday 13:00
	late := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	due, _ = cal.DueTime(late, 4, true)
	want = time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("Expected %v, got %v", want, due)
	}
}

// TestDueTimeMalformedCalendar tests the bounded walk degradation
func TestDueTimeMalformedCalendar(t *testing.T) {
	cal := monFri()
	cal.WorkingDays = map[time.Weekday]bool{} // never a working day
	cal.MaxWalkDays = 10

	start := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC)
	_, degraded := cal.DueTime(start, 8, true)
	if !degraded {
		t.Error("Expected degraded result for calendar with no working days")
	}
}

// TestRemainingRoundTrip tests remaining(due, due) == 0
func TestRemainingRoundTrip(t *testing.T) {
	cal := monFri()
	start := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC)

	for _, hours := range []float64{0, 1, 8, 24, 100.5} {
		due, degraded := cal.DueTime(start, hours, true)
		if degraded {
			t.Fatalf("Unexpected degradation for %v hours", hours)
		}
		if got := cal.Remaining(due, due, true); got != 0 {
			t.Errorf("Expected remaining 0 at due time for %v hours, got %v", hours, got)
		}
	}
}

// TestRemainingMatchesWalkedDuration tests that remaining from the start
// equals the requested duration
func TestRemainingMatchesWalkedDuration(t *testing.T) {
	cal := monFri()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC) // Monday 09:00

	due, _ := cal.DueTime(start, 20, true)
	got := cal.Remaining(start, due, true)
	if math.Abs(got-20) > 1e-9 {
		t.Errorf("Expected 20 remaining business hours, got %v", got)
	}
}

// TestRemainingNegativeWhenPastDue tests breach sign semantics
func TestRemainingNegativeWhenPastDue(t *testing.T) {
	cal := monFri()
	due := time.Date(2026, 3, 9, 13, 0, 0, 0, time.UTC) // Monday 13:00
	now := time.Date(2026, 3, 9, 15, 30, 0, 0, time.UTC)

	got := cal.Remaining(now, due, true)
	if math.Abs(got-(-2.5)) > 1e-9 {
		t.Errorf("Expected -2.5 hours, got %v", got)
	}
}

// TestRemainingFractionalCurrentDay tests a due time inside the current day
func TestRemainingFractionalCurrentDay(t *testing.T) {
	cal := monFri()
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)

	got := cal.Remaining(now, due, true)
	if math.Abs(got-4.5) > 1e-9 {
		t.Errorf("Expected 4.5 hours, got %v", got)
	}
}

// TestRemainingAcrossWeekend tests that weekend hours are not counted
func TestRemainingAcrossWeekend(t *testing.T) {
	cal := monFri()
	now := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC)  // Friday 16:00
	due := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)  // Monday 12:00

	// 1h Friday + 3h Monday
	got := cal.Remaining(now, due, true)
	if math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected 4 business hours, got %v", got)
	}
}

// TestRemainingWallClock tests plain subtraction in wall-clock mode
func TestRemainingWallClock(t *testing.T) {
	cal := monFri()
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	due := now.Add(36 * time.Hour)

	if got := cal.Remaining(now, due, false); math.Abs(got-36) > 1e-9 {
		t.Errorf("Expected 36 hours, got %v", got)
	}
}

// TestIsWorkingDay tests weekday and holiday handling
func TestIsWorkingDay(t *testing.T) {
	cal := monFri()
	cal.Holidays = map[string]bool{"2026-03-10": true}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"Monday", time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), true},
		{"Saturday", time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC), false},
		{"Holiday Tuesday", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.IsWorkingDay(tt.date); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestLoadFromFile tests parsing a YAML calendar definition
func TestLoadFromFile(t *testing.T) {
	ff := fileFormat{
		DayStartHour: 8,
		DayEndHour:   16,
		WorkingDays:  []string{"Monday", "tuesday", "WEDNESDAY"},
		Holidays:     []string{"2026-01-01"},
	}

	cal, err := fromFile(ff, Default())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cal.DayStartHour != 8 || cal.DayEndHour != 16 {
		t.Errorf("Expected 8-16 workday, got %d-%d", cal.DayStartHour, cal.DayEndHour)
	}
	if !cal.WorkingDays[time.Wednesday] || cal.WorkingDays[time.Friday] {
		t.Error("Working days not parsed correctly")
	}
	if !cal.Holidays["2026-01-01"] {
		t.Error("Holiday not parsed")
	}
}

// TestLoadRejectsInvalid tests rejection of malformed definitions
func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		ff   fileFormat
	}{
		{"Inverted bounds", fileFormat{DayStartHour: 17, DayEndHour: 9}},
		{"Unknown weekday", fileFormat{WorkingDays: []string{"Funday"}}},
		{"Bad holiday date", fileFormat{Holidays: []string{"01/01/2026"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fromFile(tt.ff, Default()); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}
