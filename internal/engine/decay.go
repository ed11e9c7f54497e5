// Package engine contains the pure scoring and aggregation functions of the
// decision intelligence engine. Everything here is a deterministic function
// of its inputs and a caller-supplied clock; no I/O, no shared state.
package engine

import (
	"math"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// AggregateConfig tunes decay and confirmation. The window is a tunable
// constant, not an inferred business rule; defaults match the product's
// 30-day confirmation window.
type AggregateConfig struct {
	// Window is both the confirmation window and the decay horizon. Events
	// older than Window contribute nothing.
	Window time.Duration

	// HalfLife controls the exponential falloff inside the window.
	HalfLife time.Duration

	// ConfirmReporters is the distinct-reporter threshold for user types.
	ConfirmReporters int

	// CompetingOffersMin is the live active-offer count that confirms
	// competing_offers.
	CompetingOffersMin int

	// ManyVisitsMin is the recent verified-visit count that confirms
	// many_visits.
	ManyVisitsMin int

	// HighActivityStrength is the decayed-strength threshold that confirms
	// high_activity.
	HighActivityStrength float64
}

// DefaultAggregateConfig returns the production defaults: a 30-day window
// with a quarter-window half-life.
func DefaultAggregateConfig() AggregateConfig {
	window := 30 * 24 * time.Hour
	return AggregateConfig{
		Window:               window,
		HalfLife:             window / 4,
		ConfirmReporters:     3,
		CompetingOffersMin:   2,
		ManyVisitsMin:        5,
		HighActivityStrength: 3.0,
	}
}

// Decay returns the multiplier applied to an event's weight after the given
// age. The curve is exponential, exp(-ln2 * age/halfLife), monotonically
// non-increasing in age, with a hard cutoff at the window so old events are
// exactly negligible rather than asymptotically so.
func (c AggregateConfig) Decay(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	if age >= c.Window {
		return 0
	}
	return math.Exp2(-float64(age) / float64(c.HalfLife))
}

// Strength sums the decayed weights of events as of now. Events observed
// after now are clamped to zero age rather than amplified.
func (c AggregateConfig) Strength(events []domain.SignalEvent, now time.Time) float64 {
	var total float64
	for _, ev := range events {
		total += ev.Weight * c.Decay(now.Sub(ev.ObservedAt))
	}
	return total
}
