package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"ReminderScheduler/internal/models"
	"ReminderScheduler/internal/timeparse"
)

// Layout for explicit civil due times, interpreted in the owner's timezone.
const dueAtLayout = "2006-01-02 15:04:05"

type createReminderRequest struct {
	OwnerKey string `json:"owner_key"`
	Timezone string `json:"timezone,omitempty"`

	// Either a token-grammar text ("call mom tomorrow 9:00") ...
	Text string `json:"text,omitempty"`
	// ... or an explicit payload plus civil due time.
	Payload string `json:"payload,omitempty"`
	DueAt   string `json:"due_at,omitempty"`

	Recurrence *recurrenceRequest `json:"recurrence,omitempty"`
}

type recurrenceRequest struct {
	Type         string `json:"type"`
	IntervalDays int    `json:"interval_days,omitempty"`
	Weekdays     []int  `json:"weekdays,omitempty"`
	DayOfMonth   int    `json:"day_of_month,omitempty"`
}

type Response struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

type createReminderResponse struct {
	ID       int64     `json:"id"`
	Payload  string    `json:"payload"`
	DueAt    time.Time `json:"due_at"`
	Response `json:"response"`
}

type reminderResponse struct {
	Reminder *models.Reminder `json:"reminder,omitempty"`
	Response `json:"response"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Response{Status: status, Error: msg})
}

// CreateReminder handles POST /reminders.
func CreateReminder(log *slog.Logger, store ReminderStore, defaultTimezone string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("reading body error", "error", err)
			writeError(w, r, http.StatusBadRequest, "cannot read body")
			return
		}

		var req createReminderRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Error("json unmarshal error", "error", err)
			writeError(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if req.OwnerKey == "" {
			writeError(w, r, http.StatusBadRequest, "owner_key is required")
			return
		}

		tzName := req.Timezone
		if tzName == "" {
			tzName = defaultTimezone
		}
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown timezone: "+tzName)
			return
		}

		var (
			payload string
			due     time.Time
		)
		switch {
		case req.Text != "":
			payload, due, err = timeparse.ParseReminderText(req.Text, time.Now(), loc)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "cannot parse reminder: "+err.Error())
				return
			}
		case req.Payload != "" && req.DueAt != "":
			due, err = time.ParseInLocation(dueAtLayout, req.DueAt, loc)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "due_at must look like "+dueAtLayout)
				return
			}
			payload = req.Payload
		default:
			writeError(w, r, http.StatusBadRequest, "either text or payload+due_at is required")
			return
		}

		rec, err := buildRecurrence(req.Recurrence)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid recurrence: "+err.Error())
			return
		}

		id, err := store.CreateReminder(r.Context(), models.Reminder{
			OwnerKey:      req.OwnerKey,
			Payload:       payload,
			DueAt:         due,
			OwnerTimezone: tzName,
			Status:        models.StatusPending,
			Recurrence:    rec,
		})
		if err != nil {
			log.Error("create reminder error", "error", err)
			writeError(w, r, http.StatusInternalServerError, "cannot create reminder")
			return
		}

		log.Info("reminder created", "id", id, "owner", req.OwnerKey, "due", due)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, createReminderResponse{
			ID:       id,
			Payload:  payload,
			DueAt:    due,
			Response: Response{Status: http.StatusCreated},
		})
	}
}

// GetReminder handles GET /reminders/{id}.
func GetReminder(log *slog.Logger, store ReminderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "id must be an integer")
			return
		}

		rem, err := store.GetReminder(r.Context(), id)
		if errors.Is(err, models.ErrReminderNotFound) {
			writeError(w, r, http.StatusNotFound, "reminder not found")
			return
		}
		if err != nil {
			log.Error("get reminder error", "id", id, "error", err)
			writeError(w, r, http.StatusInternalServerError, "cannot load reminder")
			return
		}

		render.JSON(w, r, reminderResponse{
			Reminder: &rem,
			Response: Response{Status: http.StatusOK},
		})
	}
}

// CancelReminder handles DELETE /reminders/{id}. Cancelling twice is fine:
// cancellation is a status change, never a removal.
func CancelReminder(log *slog.Logger, store ReminderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "id must be an integer")
			return
		}

		err = store.CancelReminder(r.Context(), id)
		if errors.Is(err, models.ErrReminderNotFound) {
			writeError(w, r, http.StatusNotFound, "reminder not found")
			return
		}
		if err != nil {
			log.Error("cancel reminder error", "id", id, "error", err)
			writeError(w, r, http.StatusInternalServerError, "cannot cancel reminder")
			return
		}

		log.Info("reminder cancelled", "id", id)
		render.JSON(w, r, Response{Status: http.StatusOK})
	}
}

// NetworkStats handles GET /stats/network.
func NetworkStats(health HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, health.GetSnapshot())
	}
}

// NetworkEvents handles GET /stats/network/events. The snapshot carries only
// the last few events; this returns a deeper slice of the history.
func NetworkEvents(health HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		render.JSON(w, r, health.RecentEvents(limit))
	}
}

func buildRecurrence(req *recurrenceRequest) (models.Recurrence, error) {
	if req == nil {
		return models.NoRecurrence(), nil
	}

	switch req.Type {
	case models.RecurrenceNone, "":
		return models.NoRecurrence(), nil
	case models.RecurrenceDaily:
		return models.NewDaily(), nil
	case models.RecurrenceEveryNDays:
		return models.NewEveryNDays(req.IntervalDays)
	case models.RecurrenceWeekly:
		days := make([]time.Weekday, 0, len(req.Weekdays))
		for _, d := range req.Weekdays {
			days = append(days, time.Weekday(d))
		}
		return models.NewWeekly(days)
	case models.RecurrenceMonthly:
		return models.NewMonthly(req.DayOfMonth)
	}
	return models.Recurrence{}, models.ErrUnknownRecurrence
}
