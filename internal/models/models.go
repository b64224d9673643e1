package models

import (
	"errors"
	"time"
)

// Reminder statuses. Only pending reminders are eligible for delivery.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusCancelled = "cancelled"
)

// Recurrence types.
const (
	RecurrenceNone       = "none"
	RecurrenceDaily      = "daily"
	RecurrenceEveryNDays = "every_n_days"
	RecurrenceWeekly     = "weekly"
	RecurrenceMonthly    = "monthly"
)

var (
	ErrReminderNotFound  = errors.New("reminder not found")
	ErrEmptyWeekdays     = errors.New("weekly recurrence needs at least one weekday")
	ErrBadIntervalDays   = errors.New("interval must be at least 1 day")
	ErrBadDayOfMonth     = errors.New("day of month must be between 1 and 31")
	ErrUnknownRecurrence = errors.New("unknown recurrence type")
)

// Recurrence is a closed variant: exactly the fields for its Type are set.
// Use the constructors so invalid combinations never reach the store.
type Recurrence struct {
	Type         string         `json:"type"`
	IntervalDays int            `json:"interval_days,omitempty"`
	Weekdays     []time.Weekday `json:"weekdays,omitempty"`
	DayOfMonth   int            `json:"day_of_month,omitempty"`
}

func NoRecurrence() Recurrence {
	return Recurrence{Type: RecurrenceNone}
}

func NewDaily() Recurrence {
	return Recurrence{Type: RecurrenceDaily}
}

func NewEveryNDays(n int) (Recurrence, error) {
	if n < 1 {
		return Recurrence{}, ErrBadIntervalDays
	}
	return Recurrence{Type: RecurrenceEveryNDays, IntervalDays: n}, nil
}

// NewWeekly rejects an empty day set at construction time so the
// scheduler never has to treat it as a runtime condition.
func NewWeekly(days []time.Weekday) (Recurrence, error) {
	if len(days) == 0 {
		return Recurrence{}, ErrEmptyWeekdays
	}
	seen := make(map[time.Weekday]bool, len(days))
	uniq := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return Recurrence{}, errors.New("weekday out of range")
		}
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, d)
		}
	}
	return Recurrence{Type: RecurrenceWeekly, Weekdays: uniq}, nil
}

func NewMonthly(dayOfMonth int) (Recurrence, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return Recurrence{}, ErrBadDayOfMonth
	}
	return Recurrence{Type: RecurrenceMonthly, DayOfMonth: dayOfMonth}, nil
}

// IsNone reports whether the reminder fires once and is then terminal.
func (r Recurrence) IsNone() bool {
	return r.Type == "" || r.Type == RecurrenceNone
}

// Reminder is one schedulable record. DueAt is stored timezone-naive and is
// always interpreted in OwnerTimezone; see DESIGN.md for the rationale.
type Reminder struct {
	ID            int64      `json:"id"`
	OwnerKey      string     `json:"owner_key"`
	Payload       string     `json:"payload"`
	DueAt         time.Time  `json:"due_at"`
	OwnerTimezone string     `json:"owner_timezone"`
	Status        string     `json:"status"`
	Recurrence    Recurrence `json:"recurrence"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RetryTask is one pending redelivery attempt. OwnerKey and Payload are
// copied at enqueue time so the task survives without its originating record.
type RetryTask struct {
	ID            string    `json:"id"`
	RecordRef     int64     `json:"record_ref"`
	OwnerKey      string    `json:"owner_key"`
	Payload       string    `json:"payload"`
	AttemptCount  int       `json:"attempt_count"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
}
