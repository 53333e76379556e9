package calendar

import (
	"time"
)

// Calendar defines the business-hours model used for all deadline
// arithmetic. All methods are pure; callers pass explicit timestamps.
type Calendar struct {
	DayStartHour int
	DayEndHour   int
	WorkingDays  map[time.Weekday]bool
	Holidays     map[string]bool // keyed by "2006-01-02"

	// MaxWalkDays bounds day-by-day walks so a malformed calendar
	// (no working days, every day a holiday) cannot loop forever.
	MaxWalkDays int
}

const defaultMaxWalkDays = 366

// Default returns the standard Mon-Fri 09:00-17:00 calendar.
func Default() Calendar {
	return Calendar{
		DayStartHour: 9,
		DayEndHour:   17,
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		Holidays:    map[string]bool{},
		MaxWalkDays: defaultMaxWalkDays,
	}
}

// DueTime converts a start time plus a duration in hours into a due time.
// With businessHoursOnly false this is exact wall-clock addition. With it
// true the calculation walks working days, consuming available hours per
// day with half-open day boundaries (start inclusive, end exclusive).
//
// The second return value reports a degraded result: the walk hit
// MaxWalkDays before consuming the full duration and the returned time is
// the last cursor position, not a true due time. Callers must surface it.
func (c Calendar) DueTime(start time.Time, hours float64, businessHoursOnly bool) (time.Time, bool) {
	if hours < 0 {
		hours = 0
	}
	if !businessHoursOnly {
		return start.Add(durationHours(hours)), false
	}

	maxDays := c.maxWalkDays()
	remaining := hours
	cursor := start

	for i := 0; i < maxDays; i++ {
		if !c.IsWorkingDay(cursor) {
			cursor = startOfNextDay(cursor)
			continue
		}

		dayStart := c.workdayStart(cursor)
		dayEnd := c.workdayEnd(cursor)

		if cursor.Before(dayStart) {
			cursor = dayStart
		}
		if !cursor.Before(dayEnd) {
			cursor = startOfNextDay(cursor)
			continue
		}

		available := dayEnd.Sub(cursor).Hours()
		if remaining <= available {
			return cursor.Add(durationHours(remaining)), false
		}

		remaining -= available
		cursor = startOfNextDay(cursor)
	}

	return cursor, true
}

// Remaining returns the signed hours between now and due. Zero or negative
// means the deadline is breached. In business mode it accumulates working
// hours only, handling a due time that falls inside the current day.
func (c Calendar) Remaining(now, due time.Time, businessHoursOnly bool) float64 {
	if !businessHoursOnly {
		return due.Sub(now).Hours()
	}
	if due.Before(now) {
		return -c.businessHoursBetween(due, now)
	}
	return c.businessHoursBetween(now, due)
}

// IsWorkingDay reports whether t falls on a configured working day that
// is not a holiday.
func (c Calendar) IsWorkingDay(t time.Time) bool {
	if !c.WorkingDays[t.Weekday()] {
		return false
	}
	return !c.Holidays[t.Format("2006-01-02")]
}

// businessHoursBetween accumulates working hours from a to b (a <= b).
func (c Calendar) businessHoursBetween(a, b time.Time) float64 {
	maxDays := c.maxWalkDays()
	total := 0.0
	cursor := a

	for i := 0; i < maxDays && cursor.Before(b); i++ {
		if !c.IsWorkingDay(cursor) {
			cursor = startOfNextDay(cursor)
			continue
		}

		dayStart := c.workdayStart(cursor)
		dayEnd := c.workdayEnd(cursor)

		if cursor.Before(dayStart) {
			cursor = dayStart
		}
		if !cursor.Before(dayEnd) {
			cursor = startOfNextDay(cursor)
			continue
		}

		end := dayEnd
		if b.Before(end) {
			end = b
		}
		if end.After(cursor) {
			total += end.Sub(cursor).Hours()
		}
		cursor = startOfNextDay(cursor)
	}

	return total
}

func (c Calendar) maxWalkDays() int {
	if c.MaxWalkDays > 0 {
		return c.MaxWalkDays
	}
	return defaultMaxWalkDays
}

func (c Calendar) workdayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.DayStartHour, 0, 0, 0, t.Location())
}

func (c Calendar) workdayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.DayEndHour, 0, 0, 0, t.Location())
}

func startOfNextDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, t.Location())
}

func durationHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
