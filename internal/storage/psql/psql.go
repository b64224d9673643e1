package psql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"ReminderScheduler/internal/models"
)

// ErrReminderNotFound mirrors the domain sentinel for callers that only
// import this package.
var ErrReminderNotFound = models.ErrReminderNotFound

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.psql.New" // Mark for errors

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stmt, err := db.Prepare(`
	CREATE TABLE IF NOT EXISTS reminders(
		id BIGSERIAL PRIMARY KEY,
		owner_key TEXT NOT NULL, -- opaque delivery routing key
		payload TEXT NOT NULL,
		due_at TIMESTAMP NOT NULL, -- civil time in owner_timezone
		owner_timezone TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		recurrence_type TEXT NOT NULL DEFAULT 'none',
		recurrence_interval INTEGER,
		recurrence_days TEXT,
		recurrence_day_of_month INTEGER,
		created_at TIMESTAMP NOT NULL DEFAULT now()
		);
	CREATE INDEX IF NOT EXISTS reminders_due_status_idx ON reminders (status, due_at);
	CREATE INDEX IF NOT EXISTS reminders_owner_idx ON reminders (owner_key, status);
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = stmt.Exec()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) CreateReminder(ctx context.Context, rem models.Reminder) (int64, error) {
	const op = "storage.psql.CreateReminder"

	interval, dayOfMonth, days, err := flattenRecurrence(rem.Recurrence)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO reminders(owner_key, payload, due_at, owner_timezone, status,
			recurrence_type, recurrence_interval, recurrence_days, recurrence_day_of_month)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, rem.OwnerKey, rem.Payload, civil(rem.DueAt), rem.OwnerTimezone, models.StatusPending,
		recurrenceType(rem.Recurrence), interval, days, dayOfMonth).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetReminder(ctx context.Context, id int64) (models.Reminder, error) {
	const op = "storage.psql.GetReminder"

	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_key, payload, due_at, owner_timezone, status,
		       recurrence_type, recurrence_interval, recurrence_days, recurrence_day_of_month,
		       created_at
		FROM reminders WHERE id = $1
	`, id)

	rem, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reminder{}, ErrReminderNotFound
	}
	if err != nil {
		return models.Reminder{}, fmt.Errorf("%s: %w", op, err)
	}
	return rem, nil
}

// ListDuePending returns pending reminders whose civil due time has passed in
// their own timezone. The comparison runs per record inside SQL: a single
// global now against naive timestamps would be wrong across mixed timezones.
func (s *Storage) ListDuePending(ctx context.Context) ([]models.Reminder, error) {
	const op = "storage.psql.ListDuePending"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_key, payload, due_at, owner_timezone, status,
		       recurrence_type, recurrence_interval, recurrence_days, recurrence_day_of_month,
		       created_at
		FROM reminders
		WHERE status = $1 AND due_at <= (now() AT TIME ZONE owner_timezone)
		ORDER BY due_at ASC
	`, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var due []models.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		due = append(due, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return due, nil
}

// MarkSent completes a non-recurring reminder.
func (s *Storage) MarkSent(ctx context.Context, id int64) error {
	return s.setStatus(ctx, "storage.psql.MarkSent", id, models.StatusSent)
}

// CancelReminder sets the cancelled status. Idempotent: cancelling an already
// cancelled reminder is a no-op, not an error.
func (s *Storage) CancelReminder(ctx context.Context, id int64) error {
	return s.setStatus(ctx, "storage.psql.CancelReminder", id, models.StatusCancelled)
}

func (s *Storage) setStatus(ctx context.Context, op string, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// Reschedule moves a recurring reminder's due instant forward; the status
// stays pending.
func (s *Storage) Reschedule(ctx context.Context, id int64, due time.Time) error {
	const op = "storage.psql.Reschedule"

	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET due_at = $1, status = $2 WHERE id = $3
	`, civil(due), models.StatusPending, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrReminderNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (models.Reminder, error) {
	var (
		rem        models.Reminder
		recType    string
		interval   sql.NullInt64
		days       sql.NullString
		dayOfMonth sql.NullInt64
	)

	err := row.Scan(&rem.ID, &rem.OwnerKey, &rem.Payload, &rem.DueAt, &rem.OwnerTimezone,
		&rem.Status, &recType, &interval, &days, &dayOfMonth, &rem.CreatedAt)
	if err != nil {
		return models.Reminder{}, err
	}

	rec, err := unflattenRecurrence(recType, interval, days, dayOfMonth)
	if err != nil {
		return models.Reminder{}, err
	}
	rem.Recurrence = rec

	return rem, nil
}

func recurrenceType(rec models.Recurrence) string {
	if rec.Type == "" {
		return models.RecurrenceNone
	}
	return rec.Type
}

func flattenRecurrence(rec models.Recurrence) (interval, dayOfMonth sql.NullInt64, days sql.NullString, err error) {
	switch recurrenceType(rec) {
	case models.RecurrenceNone, models.RecurrenceDaily:
	case models.RecurrenceEveryNDays:
		interval = sql.NullInt64{Int64: int64(rec.IntervalDays), Valid: true}
	case models.RecurrenceWeekly:
		raw, merr := json.Marshal(rec.Weekdays)
		if merr != nil {
			return interval, dayOfMonth, days, merr
		}
		days = sql.NullString{String: string(raw), Valid: true}
	case models.RecurrenceMonthly:
		dayOfMonth = sql.NullInt64{Int64: int64(rec.DayOfMonth), Valid: true}
	default:
		err = models.ErrUnknownRecurrence
	}
	return interval, dayOfMonth, days, err
}

func unflattenRecurrence(recType string, interval sql.NullInt64, days sql.NullString, dayOfMonth sql.NullInt64) (models.Recurrence, error) {
	switch recType {
	case models.RecurrenceNone, "":
		return models.NoRecurrence(), nil
	case models.RecurrenceDaily:
		return models.NewDaily(), nil
	case models.RecurrenceEveryNDays:
		return models.NewEveryNDays(int(interval.Int64))
	case models.RecurrenceWeekly:
		var weekdays []time.Weekday
		if err := json.Unmarshal([]byte(days.String), &weekdays); err != nil {
			return models.Recurrence{}, err
		}
		return models.NewWeekly(weekdays)
	case models.RecurrenceMonthly:
		return models.NewMonthly(int(dayOfMonth.Int64))
	}
	return models.Recurrence{}, models.ErrUnknownRecurrence
}

// civil strips the zone marker, keeping the wall-clock components. TIMESTAMP
// columns hold civil time; the owner's timezone re-anchors it on read.
func civil(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, m, s := t.Clock()
	return time.Date(y, mo, d, h, m, s, 0, time.UTC)
}
