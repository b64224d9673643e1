// Package scheduler polls the record store for due reminders and dispatches
// them through the injected notifier. Cycles are single-flight: a tick firing
// while a cycle is still running is skipped, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"ReminderScheduler/internal/models"
	"ReminderScheduler/internal/retryq"
	"ReminderScheduler/internal/timeparse"
)

// ReminderStore is the record-mutation contract the scheduler consumes.
type ReminderStore interface {
	ListDuePending(ctx context.Context) ([]models.Reminder, error)
	GetReminder(ctx context.Context, id int64) (models.Reminder, error)
	MarkSent(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, due time.Time) error
}

// Notifier is the send capability; implementations must honor ctx deadlines.
type Notifier interface {
	Notify(ctx context.Context, ownerKey, payload string) error
}

// RetryEnqueuer accepts a retry task after a failed dispatch and reports
// whether a record already has one outstanding.
type RetryEnqueuer interface {
	Enqueue(ctx context.Context, task models.RetryTask) error
	HasPending(ctx context.Context, recordRef int64) (bool, error)
}

// Health receives the outcome of every delivery attempt.
type Health interface {
	RecordSuccess(label string)
	RecordFailure(label, reason string)
}

type Options struct {
	PollInterval  time.Duration
	NotifyTimeout time.Duration
}

type Scheduler struct {
	store    ReminderStore
	notifier Notifier
	retries  RetryEnqueuer
	health   Health
	log      *slog.Logger
	opts     Options

	running atomic.Bool
	now     func() time.Time
}

func New(store ReminderStore, notifier Notifier, retries RetryEnqueuer, health Health, log *slog.Logger, opts Options) *Scheduler {
	return &Scheduler{
		store:    store,
		notifier: notifier,
		retries:  retries,
		health:   health,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started", "poll_interval", s.opts.PollInterval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle checks for due reminders and dispatches each one. A failure on one
// record never aborts the rest of the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous cycle still running, tick skipped")
		return
	}
	defer s.running.Store(false)

	due, err := s.store.ListDuePending(ctx)
	if err != nil {
		s.log.Error("list due reminders", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	s.log.Info("due reminders found", "count", len(due))
	for _, rem := range due {
		s.dispatch(ctx, rem)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, rem models.Reminder) {
	// A record with an outstanding retry task is owned by the queue until the
	// task resolves; dispatching it again would fork redelivery.
	pending, err := s.retries.HasPending(ctx, rem.ID)
	if err != nil {
		s.log.Error("check pending retry", "reminder", rem.ID, "error", err)
	} else if pending {
		return
	}

	label := fmt.Sprintf("reminder_%d", rem.ID)

	nctx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
	err = s.notifier.Notify(nctx, rem.OwnerKey, rem.Payload)
	cancel()

	if err != nil {
		s.health.RecordFailure(label, err.Error())
		// DueAt stays untouched: redelivery belongs to the retry queue, the
		// record stays due but is skipped here until the task resolves.
		task := retryq.NewTask(rem.ID, rem.OwnerKey, rem.Payload, s.now())
		if qerr := s.retries.Enqueue(ctx, task); qerr != nil {
			s.log.Error("enqueue retry task", "reminder", rem.ID, "error", qerr)
		}
		return
	}

	s.health.RecordSuccess(label)

	if aerr := s.advance(ctx, rem); aerr != nil {
		s.log.Error("advance delivered reminder", "reminder", rem.ID, "error", aerr)
	}
}

// advance moves a delivered record forward: one-shot records complete,
// recurring ones shift to the next occurrence and stay pending.
func (s *Scheduler) advance(ctx context.Context, rem models.Reminder) error {
	if rem.Recurrence.IsNone() {
		return s.store.MarkSent(ctx, rem.ID)
	}

	loc := s.location(rem.OwnerTimezone)
	next := timeparse.NextOccurrence(rem.Recurrence, anchor(rem.DueAt, loc), loc)
	if err := s.store.Reschedule(ctx, rem.ID, next); err != nil {
		return err
	}
	s.log.Info("recurring reminder advanced", "reminder", rem.ID, "next", next)
	return nil
}

// ResolveDelivered advances a record whose payload was delivered through the
// retry queue. Satisfies the retry worker's resolver seam.
func (s *Scheduler) ResolveDelivered(ctx context.Context, recordRef int64) error {
	rem, err := s.store.GetReminder(ctx, recordRef)
	if errors.Is(err, models.ErrReminderNotFound) {
		// Record cancelled or removed while the retry was in flight.
		return nil
	}
	if err != nil {
		return err
	}
	if rem.Status != models.StatusPending {
		return nil
	}
	return s.advance(ctx, rem)
}

func (s *Scheduler) location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.log.Warn("unknown timezone, falling back to UTC", "timezone", name)
		return time.UTC
	}
	return loc
}

// anchor re-interprets a stored civil due time in the owner's timezone.
func anchor(due time.Time, loc *time.Location) time.Time {
	y, mo, d := due.Date()
	h, m, sec := due.Clock()
	return time.Date(y, mo, d, h, m, sec, 0, loc)
}
