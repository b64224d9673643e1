// Package monitor tracks delivery outcomes process-wide: totals, the current
// consecutive-failure streak and a bounded history of recent events. Both the
// scheduler and the retry worker feed it, so all mutation is mutex-guarded.
package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const historyLimit = 100

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event is one recorded delivery outcome.
type Event struct {
	Label   string    `json:"label"`
	Outcome string    `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// AlertSink receives the critical signal on a threshold crossing.
// Implementations must be safe to call under the monitor lock.
type AlertSink interface {
	Alert(message string) error
}

// Snapshot is the aggregate view handed to status reporters.
type Snapshot struct {
	SuccessRate         float64    `json:"success_rate"`
	TotalSuccesses      int        `json:"total_successes"`
	TotalFailures       int        `json:"total_failures"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	AlertActive         bool       `json:"alert_active"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	RecentEvents        []Event    `json:"recent_events"`
}

type Monitor struct {
	mu sync.Mutex

	alertThreshold int
	log            *slog.Logger
	alerts         AlertSink

	totalSuccesses      int
	totalFailures       int
	consecutiveFailures int
	lastFailureAt       time.Time
	alertSent           bool
	history             []Event

	now func() time.Time
}

// New builds a monitor with zero counters. sink may be nil; alerts then go
// to the log only.
func New(alertThreshold int, log *slog.Logger, sink AlertSink) *Monitor {
	return &Monitor{
		alertThreshold: alertThreshold,
		log:            log,
		alerts:         sink,
		now:            time.Now,
	}
}

// RecordSuccess resets the failure streak. A positive streak resetting to
// zero logs a recovery signal and re-arms the alert.
func (m *Monitor) RecordSuccess(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consecutiveFailures > 0 {
		m.log.Info("delivery recovered",
			"after_failures", m.consecutiveFailures, "label", label)
		m.alertSent = false
	}
	m.consecutiveFailures = 0
	m.totalSuccesses++
	m.append(Event{Label: label, Outcome: OutcomeSuccess, At: m.now()})
}

// RecordFailure bumps the streak and, on reaching the threshold, emits the
// critical alert exactly once per crossing. Further failures stay quiet until
// a success re-arms it.
func (m *Monitor) RecordFailure(label, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveFailures++
	m.totalFailures++
	m.lastFailureAt = m.now()
	m.append(Event{Label: label, Outcome: OutcomeFailure, Reason: reason, At: m.lastFailureAt})

	m.log.Warn("delivery failure",
		"streak", m.consecutiveFailures, "label", label, "reason", reason)

	if m.consecutiveFailures >= m.alertThreshold && !m.alertSent {
		msg := fmt.Sprintf(
			"%d consecutive delivery failures (last: %s); totals: %d failed, %d ok",
			m.consecutiveFailures, reason, m.totalFailures, m.totalSuccesses)
		m.log.Error("delivery alert", "message", msg)
		if m.alerts != nil {
			if err := m.alerts.Alert(msg); err != nil {
				m.log.Error("alert sink error", "error", err)
			}
		}
		m.alertSent = true
	}
}

// GetSnapshot returns the aggregate stats plus up to 5 recent events.
// Success rate with no data at all reports as 1.0.
func (m *Monitor) GetSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.totalSuccesses + m.totalFailures
	rate := 1.0
	if total > 0 {
		rate = float64(m.totalSuccesses) / float64(total)
	}

	snap := Snapshot{
		SuccessRate:         rate,
		TotalSuccesses:      m.totalSuccesses,
		TotalFailures:       m.totalFailures,
		ConsecutiveFailures: m.consecutiveFailures,
		AlertActive:         m.alertSent,
		RecentEvents:        m.recent(5),
	}
	if !m.lastFailureAt.IsZero() {
		at := m.lastFailureAt
		snap.LastFailureAt = &at
	}
	return snap
}

// RecentEvents returns up to n most recent events, oldest first.
func (m *Monitor) RecentEvents(n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recent(n)
}

func (m *Monitor) recent(n int) []Event {
	if n > len(m.history) {
		n = len(m.history)
	}
	out := make([]Event, n)
	copy(out, m.history[len(m.history)-n:])
	return out
}

func (m *Monitor) append(ev Event) {
	m.history = append(m.history, ev)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}
