package domain

import "time"

// PressureLevel classifies competitive pressure on a property.
type PressureLevel string

const (
	PressureLow    PressureLevel = "low"
	PressureMedium PressureLevel = "medium"
	PressureHigh   PressureLevel = "high"
)

// rank orders pressure levels for monotonicity comparisons.
func (l PressureLevel) rank() int {
	switch l {
	case PressureHigh:
		return 2
	case PressureMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l is at or above other in severity.
func (l PressureLevel) AtLeast(other PressureLevel) bool {
	return l.rank() >= other.rank()
}

// PressureState is the derived competitive-pressure view for a property.
// Level assignment is monotonic in its inputs: adding competitive signal
// never lowers the level.
type PressureState struct {
	PropertyID            string        `json:"property_id"`
	Level                 PressureLevel `json:"level"`
	Score                 int           `json:"score"` // 0-100, ordering within a level
	ActiveOffers          int           `json:"active_offers"`
	RecentVisits          int           `json:"recent_visits"` // verified, trailing 48h
	HighActivityConfirmed bool          `json:"high_activity_confirmed"`
	ManyVisitsConfirmed   bool          `json:"many_visits_confirmed"`
	CompetingConfirmed    bool          `json:"competing_offers_confirmed"`
	ComposedAt            time.Time     `json:"composed_at"`
}
