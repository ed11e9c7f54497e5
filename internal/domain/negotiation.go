package domain

import "time"

// FrictionLevel grades disagreement intensity on one negotiation dimension.
type FrictionLevel string

const (
	FrictionNone   FrictionLevel = "none"
	FrictionLow    FrictionLevel = "low"
	FrictionMedium FrictionLevel = "medium"
	FrictionHigh   FrictionLevel = "high"
)

// FrictionArea names the negotiation dimension a friction applies to.
type FrictionArea string

const (
	AreaPrice    FrictionArea = "price"
	AreaTimeline FrictionArea = "timeline"
	AreaTerms    FrictionArea = "terms"
	AreaMixed    FrictionArea = "mixed"
)

// Friction is the disagreement/stall measure assembled from counter-offer
// deltas versus elapsed time.
type Friction struct {
	Price    FrictionLevel `json:"price"`
	Timeline FrictionLevel `json:"timeline"`
	Terms    FrictionLevel `json:"terms"`
	Dominant FrictionArea  `json:"dominant"`
	Overall  FrictionLevel `json:"overall"`
}

// ResponseTrend classifies whether counterpart response times are shrinking
// or growing.
type ResponseTrend string

const (
	ResponseFaster ResponseTrend = "faster"
	ResponseStable ResponseTrend = "stable"
	ResponseSlower ResponseTrend = "slower"
)

// ConcessionPattern classifies the shape of successive price concessions.
type ConcessionPattern string

const (
	ConcessionConsistent ConcessionPattern = "consistent"
	ConcessionErratic    ConcessionPattern = "erratic"
	ConcessionStalled    ConcessionPattern = "stalled"
)

// RhythmState summarizes negotiation cadence.
type RhythmState string

const (
	RhythmFast    RhythmState = "fast"
	RhythmNormal  RhythmState = "normal"
	RhythmSlowing RhythmState = "slowing"
)

// Rhythm is the response-cadence measure of an offer thread. Averages are
// zero with Sampled=false until at least two prior events exist.
type Rhythm struct {
	State             RhythmState       `json:"state"`
	AvgResponseHours  float64           `json:"avg_response_hours"`
	Trend             ResponseTrend     `json:"trend"`
	ConcessionPattern ConcessionPattern `json:"concession_pattern"`
	Sampled           bool              `json:"sampled"`
}

// AlignmentState tracks whether the parties are converging.
type AlignmentState string

const (
	AlignmentImproving     AlignmentState = "improving"
	AlignmentStable        AlignmentState = "stable"
	AlignmentDeteriorating AlignmentState = "deteriorating"
)

// InsightCode is a structured, prose-free insight identifier. Rendering copy
// for a code is the explanation layer's job, keeping this contract versioned
// independently of wording.
type InsightCode string

const (
	InsightLosingAlignment InsightCode = "losing_alignment"
	InsightProgressSlowed  InsightCode = "progress_slowed"
	InsightOnTrack         InsightCode = "on_track"
	InsightMonitor         InsightCode = "monitor"
)

// OptionCode identifies one tactical option attached to an insight.
type OptionCode string

const (
	OptionShiftToPrice     OptionCode = "shift_focus_price"
	OptionAdjustTerms      OptionCode = "adjust_terms"
	OptionImprovePrice     OptionCode = "improve_price_slightly"
	OptionPauseBriefly     OptionCode = "pause_briefly"
	OptionContinueApproach OptionCode = "continue_approach"
)

// Insight is the structured tactical read-out for a snapshot.
type Insight struct {
	Code      InsightCode  `json:"code"`
	FocusArea FrictionArea `json:"focus_area"`
	Options   []OptionCode `json:"options"`
}

// MarketContext is the zone/property backdrop captured with a snapshot so all
// metrics in it share one point in time.
type MarketContext struct {
	Pressure PressureState      `json:"pressure"`
	Dynamics ZoneMarketDynamics `json:"dynamics"`
}

// AlertType tags an edge condition detected between successive snapshots.
type AlertType string

const (
	AlertRhythmSlowing          AlertType = "rhythm_slowing"
	AlertAlignmentDeteriorating AlertType = "alignment_deteriorating"
	AlertPressureIncreasing     AlertType = "pressure_increasing"
)

// NegotiationAlert is an undelivered alert attached to a snapshot.
type NegotiationAlert struct {
	ID         string    `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	OfferID    string    `json:"offer_id"`
	Type       AlertType `json:"type"`
	Delivered  bool      `json:"delivered"`
	CreatedAt  time.Time `json:"created_at"`
}

// NegotiationSnapshot is the one persisted derived artifact: an immutable,
// point-in-time view of an offer thread's friction, rhythm and market
// backdrop, kept as append-only history.
type NegotiationSnapshot struct {
	ID             string             `json:"id"`
	OfferID        string             `json:"offer_id"`
	EventID        string             `json:"event_id"` // latest event folded in
	Alignment      AlignmentState     `json:"alignment"`
	Friction       Friction           `json:"friction"`
	Rhythm         Rhythm             `json:"rhythm"`
	Market         MarketContext      `json:"market"`
	Insight        Insight            `json:"insight"`
	CoherenceScore float64            `json:"coherence_score"`
	Alerts         []NegotiationAlert `json:"alerts"`
	GeneratedAt    time.Time          `json:"generated_at"`
}
