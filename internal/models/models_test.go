package models

import (
	"errors"
	"testing"
	"time"
)

func TestRecurrenceConstructors(t *testing.T) {
	t.Run("every n days rejects zero and negatives", func(t *testing.T) {
		for _, n := range []int{0, -1} {
			if _, err := NewEveryNDays(n); !errors.Is(err, ErrBadIntervalDays) {
				t.Errorf("NewEveryNDays(%d) error = %v, want ErrBadIntervalDays", n, err)
			}
		}
		rec, err := NewEveryNDays(3)
		if err != nil {
			t.Fatalf("NewEveryNDays(3): %v", err)
		}
		if rec.Type != RecurrenceEveryNDays || rec.IntervalDays != 3 {
			t.Errorf("rec = %+v, want every_n_days with interval 3", rec)
		}
	})

	t.Run("weekly rejects empty set", func(t *testing.T) {
		if _, err := NewWeekly(nil); !errors.Is(err, ErrEmptyWeekdays) {
			t.Errorf("NewWeekly(nil) error = %v, want ErrEmptyWeekdays", err)
		}
	})

	t.Run("weekly deduplicates days", func(t *testing.T) {
		rec, err := NewWeekly([]time.Weekday{time.Monday, time.Friday, time.Monday})
		if err != nil {
			t.Fatalf("NewWeekly: %v", err)
		}
		if len(rec.Weekdays) != 2 {
			t.Errorf("Weekdays = %v, want Monday and Friday once each", rec.Weekdays)
		}
	})

	t.Run("weekly rejects out-of-range days", func(t *testing.T) {
		if _, err := NewWeekly([]time.Weekday{time.Weekday(7)}); err == nil {
			t.Error("NewWeekly(7) succeeded, want error")
		}
	})

	t.Run("monthly bounds", func(t *testing.T) {
		for _, d := range []int{0, 32, -5} {
			if _, err := NewMonthly(d); !errors.Is(err, ErrBadDayOfMonth) {
				t.Errorf("NewMonthly(%d) error = %v, want ErrBadDayOfMonth", d, err)
			}
		}
		if _, err := NewMonthly(31); err != nil {
			t.Errorf("NewMonthly(31): %v, want accepted and clamped at use", err)
		}
	})
}

func TestRecurrenceIsNone(t *testing.T) {
	if !NoRecurrence().IsNone() {
		t.Error("NoRecurrence().IsNone() = false")
	}
	if !(Recurrence{}).IsNone() {
		t.Error("zero Recurrence IsNone() = false, want zero value treated as one-shot")
	}
	if NewDaily().IsNone() {
		t.Error("NewDaily().IsNone() = true")
	}
}
