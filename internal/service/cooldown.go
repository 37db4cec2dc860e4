// Package service provides business logic implementations.
package service

import (
	"fmt"
	"time"
)

// Eligibility is the result of a cooldown check.
type Eligibility struct {
	Eligible  bool
	Remaining time.Duration
}

// CheckEligible reports whether a user whose last spin was at lastDrawAt may
// spin at now. A nil lastDrawAt means the user never spun.
func CheckEligible(lastDrawAt *time.Time, now time.Time, window time.Duration) Eligibility {
	if lastDrawAt == nil {
		return Eligibility{Eligible: true}
	}

	remaining := window - now.Sub(*lastDrawAt)
	if remaining <= 0 {
		return Eligibility{Eligible: true}
	}
	// A last spin in the future (clock skew) never blocks longer than one window.
	if remaining > window {
		remaining = window
	}
	return Eligibility{Remaining: remaining}
}

// FormatRemaining renders d as whole hours and minutes, e.g. "5ч 3м".
// Seconds are truncated.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dч %dм", hours, minutes)
}

// CooldownError is returned when a user spins before the window has passed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return "daily spin on cooldown, " + FormatRemaining(e.Remaining) + " left"
}

// TimeLeft returns the remaining time formatted for display.
func (e *CooldownError) TimeLeft() string {
	return FormatRemaining(e.Remaining)
}
