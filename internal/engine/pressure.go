package engine

import (
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// PressureInputs are the live and confirmed inputs the pressure level is
// composed from.
type PressureInputs struct {
	PropertyID            string
	ActiveOffers          int
	RecentVisits          int // verified, trailing 48h
	HighActivityConfirmed bool
	ManyVisitsConfirmed   bool
	CompetingConfirmed    bool
}

// elevatedVisits is the 48h verified-visit count that counts as a secondary
// pressure signal on its own.
const elevatedVisits = 3

// ComposePressure assigns the pressure level. The assignment is monotonic in
// every input: each input only ever appears on the escalating side of a
// comparison, so adding competitive signal can never lower the level.
//
//	high:   competing_offers confirmed, or >= 2 active offers
//	medium: any secondary signal (many_visits or high_activity confirmed,
//	        exactly one active offer, elevated recent visits)
//	low:    otherwise
func ComposePressure(in PressureInputs, now time.Time) domain.PressureState {
	state := domain.PressureState{
		PropertyID:            in.PropertyID,
		Level:                 domain.PressureLow,
		ActiveOffers:          in.ActiveOffers,
		RecentVisits:          in.RecentVisits,
		HighActivityConfirmed: in.HighActivityConfirmed,
		ManyVisitsConfirmed:   in.ManyVisitsConfirmed,
		CompetingConfirmed:    in.CompetingConfirmed,
		ComposedAt:            now,
	}

	switch {
	case in.CompetingConfirmed || in.ActiveOffers >= 2:
		state.Level = domain.PressureHigh
	case in.ManyVisitsConfirmed || in.HighActivityConfirmed ||
		in.ActiveOffers == 1 || in.RecentVisits >= elevatedVisits:
		state.Level = domain.PressureMedium
	}

	state.Score = pressureScore(in)
	return state
}

// pressureScore gives consumers an ordering within a level, 0-100. Additive
// in the same inputs as the level, so it inherits monotonicity.
func pressureScore(in PressureInputs) int {
	score := 0

	switch {
	case in.ActiveOffers >= 3:
		score += 40
	case in.ActiveOffers == 2:
		score += 30
	case in.ActiveOffers == 1:
		score += 15
	}

	switch {
	case in.RecentVisits >= 5:
		score += 20
	case in.RecentVisits >= elevatedVisits:
		score += 10
	}

	if in.CompetingConfirmed {
		score += 25
	}
	if in.ManyVisitsConfirmed {
		score += 10
	}
	if in.HighActivityConfirmed {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}
