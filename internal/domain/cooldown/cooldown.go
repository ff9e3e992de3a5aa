// Package cooldown decides whether a user may draw again.
package cooldown

import "time"

// DefaultDuration is the wait between two draws.
const DefaultDuration = time.Hour

type Gate struct {
	Duration time.Duration
}

func New(d time.Duration) Gate {
	if d < 0 {
		d = 0
	}
	return Gate{Duration: d}
}

// Decision is the result of a cooldown check. Remaining is zero when Allowed.
type Decision struct {
	Allowed   bool
	Remaining time.Duration
	NextAt    time.Time
}

// Check evaluates a last draw time against now. A zero last means the user
// has never drawn.
func (g Gate) Check(last, now time.Time) Decision {
	if last.IsZero() {
		return Decision{Allowed: true, NextAt: now}
	}

	elapsed := now.Sub(last)
	if elapsed >= g.Duration {
		return Decision{Allowed: true, NextAt: now}
	}

	remaining := g.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   false,
		Remaining: remaining,
		NextAt:    last.Add(g.Duration),
	}
}

// Cutoff is the latest last-draw time that still permits a draw at now.
// Storage uses it for the conditional stamp.
func (g Gate) Cutoff(now time.Time) time.Time {
	return now.Add(-g.Duration)
}
