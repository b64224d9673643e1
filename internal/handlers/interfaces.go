package handlers

import (
	"context"

	"ReminderScheduler/internal/models"
	"ReminderScheduler/internal/monitor"
)

// ReminderStore interface for the record operations the HTTP surface needs
type ReminderStore interface {
	CreateReminder(ctx context.Context, rem models.Reminder) (int64, error)
	GetReminder(ctx context.Context, id int64) (models.Reminder, error)
	CancelReminder(ctx context.Context, id int64) error
}

// HealthReporter interface for the monitor snapshot
type HealthReporter interface {
	GetSnapshot() monitor.Snapshot
	RecentEvents(n int) []monitor.Event
}
