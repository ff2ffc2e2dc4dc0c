package domain

import "time"

// DefaultTimeBudget is the advisory response window. A six hour variant is
// selected by deployment configuration.
const DefaultTimeBudget = 3 * time.Hour

// Timer tracks the advisory response window for a session. Expiry only
// flips a warning; it never blocks or force-submits. Pausing freezes the
// displayed remaining time and resuming reconstructs an adjusted start
// timestamp so elapsed accounting survives the pause interval.
type Timer struct {
	StartedAt        time.Time     `json:"started_at"`
	Budget           time.Duration `json:"budget"`
	Paused           bool          `json:"paused"`
	RemainingAtPause time.Duration `json:"remaining_at_pause"`
}

// NewTimer starts a timer at now with the given budget.
func NewTimer(now time.Time, budget time.Duration) Timer {
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	return Timer{StartedAt: now, Budget: budget}
}

// Remaining returns the time left in the budget, clamped at zero.
func (t Timer) Remaining(now time.Time) time.Duration {
	if t.Paused {
		return t.RemainingAtPause
	}
	remaining := t.Budget - now.Sub(t.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the advisory budget has run out.
func (t Timer) Expired(now time.Time) bool {
	return t.Remaining(now) <= 0
}

// Pause captures the remaining time and freezes the timer. Pausing a
// paused timer is a no-op.
func (t *Timer) Pause(now time.Time) {
	if t.Paused {
		return
	}
	t.RemainingAtPause = t.Remaining(now)
	t.Paused = true
}

// Unpause resumes the countdown from the captured remaining time by
// shifting the start timestamp.
func (t *Timer) Unpause(now time.Time) {
	if !t.Paused {
		return
	}
	t.StartedAt = now.Add(t.RemainingAtPause - t.Budget)
	t.Paused = false
	t.RemainingAtPause = 0
}
