package timeparse

import (
	"time"

	"ReminderScheduler/internal/models"
)

// NextOccurrence advances a recurring reminder from its last due instant.
// The rule is applied to from's wall-clock components in loc, so a DST
// transition shifts the absolute instant while the local time stays put.
func NextOccurrence(rule models.Recurrence, from time.Time, loc *time.Location) time.Time {
	local := from.In(loc)
	y, mo, d := local.Date()
	hour, minute, sec := local.Clock()

	switch rule.Type {
	case models.RecurrenceDaily:
		return time.Date(y, mo, d+1, hour, minute, sec, 0, loc)

	case models.RecurrenceEveryNDays:
		return time.Date(y, mo, d+rule.IntervalDays, hour, minute, sec, 0, loc)

	case models.RecurrenceWeekly:
		in := make(map[time.Weekday]bool, len(rule.Weekdays))
		for _, wd := range rule.Weekdays {
			in[wd] = true
		}
		for offset := 1; offset <= 7; offset++ {
			if in[(local.Weekday()+time.Weekday(offset))%7] {
				return time.Date(y, mo, d+offset, hour, minute, sec, 0, loc)
			}
		}
		// Empty day sets are rejected at construction; unreachable.
		return time.Date(y, mo, d+7, hour, minute, sec, 0, loc)

	case models.RecurrenceMonthly:
		day := rule.DayOfMonth
		if last := lastDayOfMonth(y, mo+1); day > last {
			day = last
		}
		return time.Date(y, mo+1, day, hour, minute, sec, 0, loc)
	}

	return from
}

// lastDayOfMonth handles month overflow via time.Date normalization:
// day 0 of month+1 is the last day of month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
