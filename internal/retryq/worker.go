package retryq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ReminderScheduler/internal/models"
)

// Notifier is the send capability; implementations must honor ctx deadlines.
type Notifier interface {
	Notify(ctx context.Context, ownerKey, payload string) error
}

// Health receives the outcome of every delivery attempt.
type Health interface {
	RecordSuccess(label string)
	RecordFailure(label, reason string)
}

// TaskStore is what the worker needs from the queue.
type TaskStore interface {
	DequeueDue(ctx context.Context, now time.Time) ([]models.RetryTask, error)
	Update(ctx context.Context, task models.RetryTask) error
	Delete(ctx context.Context, task models.RetryTask) error
	SweepOlderThan(ctx context.Context, age time.Duration, now time.Time) (int, error)
}

// Resolver advances the originating record once a retried delivery lands, so
// the scheduler stops skipping it. May be nil for payloads with no record.
type Resolver interface {
	ResolveDelivered(ctx context.Context, recordRef int64) error
}

type WorkerOptions struct {
	PollInterval  time.Duration
	SweepInterval time.Duration
	NotifyTimeout time.Duration
	MaxAttempts   int
	Retention     time.Duration
}

// Worker re-attempts queued deliveries with exponential backoff and runs the
// retention sweep.
type Worker struct {
	queue    TaskStore
	notifier Notifier
	records  Resolver
	health   Health
	log      *slog.Logger
	opts     WorkerOptions

	now func() time.Time
}

func NewWorker(queue TaskStore, notifier Notifier, records Resolver, health Health, log *slog.Logger, opts WorkerOptions) *Worker {
	return &Worker{
		queue:    queue,
		notifier: notifier,
		records:  records,
		health:   health,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Start runs the retry loop and the sweep loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	sweep := time.NewTicker(w.opts.SweepInterval)
	defer sweep.Stop()

	w.log.Info("retry worker started",
		"poll_interval", w.opts.PollInterval, "max_attempts", w.opts.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("retry worker stopped")
			return
		case <-ticker.C:
			w.RunCycle(ctx)
		case <-sweep.C:
			w.RunSweep(ctx)
		}
	}
}

// RunCycle processes every task whose backoff has elapsed.
func (w *Worker) RunCycle(ctx context.Context) {
	tasks, err := w.queue.DequeueDue(ctx, w.now())
	if err != nil {
		w.log.Error("dequeue due retries", "error", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	w.log.Info("processing retry tasks", "count", len(tasks))
	for _, task := range tasks {
		w.attempt(ctx, task)
	}
}

func (w *Worker) attempt(ctx context.Context, task models.RetryTask) {
	label := fmt.Sprintf("retry_task_%s", task.ID)

	nctx, cancel := context.WithTimeout(ctx, w.opts.NotifyTimeout)
	err := w.notifier.Notify(nctx, task.OwnerKey, task.Payload)
	cancel()

	if err == nil {
		w.health.RecordSuccess(label)
		// Advance the record before dropping the task: the scheduler keeps
		// skipping the record until the task is gone, so this order never
		// leaves a window for a duplicate dispatch.
		if w.records != nil {
			if rerr := w.records.ResolveDelivered(ctx, task.RecordRef); rerr != nil {
				w.log.Error("resolve delivered record", "record", task.RecordRef, "error", rerr)
			}
		}
		if derr := w.queue.Delete(ctx, task); derr != nil {
			w.log.Error("delete delivered retry task", "task", task.ID, "error", derr)
			return
		}
		w.log.Info("retry delivered", "task", task.ID, "attempts", task.AttemptCount)
		return
	}

	w.health.RecordFailure(label, err.Error())
	task.AttemptCount++

	if task.AttemptCount >= w.opts.MaxAttempts {
		// Terminal failure: drop the task, the monitor already counted it.
		// The record becomes the scheduler's again if it is still due.
		if derr := w.queue.Delete(ctx, task); derr != nil {
			w.log.Error("delete exhausted retry task", "task", task.ID, "error", derr)
			return
		}
		w.log.Error("retry task exhausted", "task", task.ID, "attempts", task.AttemptCount)
		return
	}

	task.NextAttemptAt = w.now().Add(BackoffDelay(task.AttemptCount))
	if uerr := w.queue.Update(ctx, task); uerr != nil {
		w.log.Error("update retry task", "task", task.ID, "error", uerr)
	}
}

// RunSweep deletes tasks past the retention window.
func (w *Worker) RunSweep(ctx context.Context) {
	deleted, err := w.queue.SweepOlderThan(ctx, w.opts.Retention, w.now())
	if err != nil {
		w.log.Error("retry retention sweep", "error", err)
		return
	}
	if deleted > 0 {
		w.log.Info("retry retention sweep", "deleted", deleted)
	}
}
