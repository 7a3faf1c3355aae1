// Package countdown maintains live remaining-time values for special offers
// with a deadline. A single shared tick drives every timer; expired entries
// are removed from the map so callers can treat "no entry + past deadline"
// as expired.
package countdown

import (
	"fmt"
	"time"

	"github.com/Sallahudin001/proposal-engine/internal/offers"
)

// Timer is the ephemeral remaining time for one offer. It is derived state,
// never persisted, and recomputed once per tick.
type Timer struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Zero reports whether the timer has fully run down.
func (t Timer) Zero() bool {
	return t.Hours == 0 && t.Minutes == 0 && t.Seconds == 0
}

// NewTimers builds the initial timer map from a fresh offer list. Offers whose
// deadline is not in the future get no entry. Rebuilding from scratch is the
// only way to restart the subsystem; stale timers must never leak across
// proposals.
func NewTimers(special []offers.SpecialOffer, now time.Time) map[string]Timer {
	timers := make(map[string]Timer)
	for _, offer := range special {
		if offer.ExpiresAt == nil || !offer.ExpiresAt.After(now) {
			continue
		}
		remaining := offer.ExpiresAt.Sub(now).Milliseconds()
		timers[offer.ID] = Timer{
			Hours:   int(remaining / (1000 * 60 * 60)),
			Minutes: int(remaining / (1000 * 60) % 60),
			Seconds: int(remaining / 1000 % 60),
		}
	}
	return timers
}

// Tick advances every timer by one second, returning a new map. Seconds
// decrement first, borrowing from minutes then hours on underflow. A timer
// that runs down to zero is deleted rather than ever going negative.
func Tick(timers map[string]Timer) map[string]Timer {
	next := make(map[string]Timer, len(timers))
	for id, t := range timers {
		if t.Zero() {
			continue
		}
		switch {
		case t.Seconds > 0:
			t.Seconds--
		case t.Minutes > 0:
			t.Minutes--
			t.Seconds = 59
		default:
			t.Hours--
			t.Minutes = 59
			t.Seconds = 59
		}
		if t.Zero() {
			continue
		}
		next[id] = t
	}
	return next
}

// Format renders a timer for display: "Xh Ym Zs" when hours remain, otherwise
// "Ym Zs".
func Format(t Timer) string {
	if t.Hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", t.Hours, t.Minutes, t.Seconds)
	}
	return fmt.Sprintf("%dm %ds", t.Minutes, t.Seconds)
}
