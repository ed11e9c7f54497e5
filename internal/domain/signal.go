package domain

import "time"

// SignalType identifies a property observation category. User-reportable
// types come from verified visits; system types are emitted by detectors.
type SignalType string

const (
	SignalNoise             SignalType = "noise"
	SignalHumidity          SignalType = "humidity"
	SignalMisleadingPhotos  SignalType = "misleading_photos"
	SignalPriceIssue        SignalType = "price_issue"
	SignalHighActivity      SignalType = "high_activity"
	SignalManyVisits        SignalType = "many_visits"
	SignalCompetingOffers   SignalType = "competing_offers"
	SignalPriceDrop         SignalType = "price_drop"
)

// UserReportable returns true for signal types that users may report after a
// verified visit. All other types are system-generated only.
func (t SignalType) UserReportable() bool {
	switch t {
	case SignalNoise, SignalHumidity, SignalMisleadingPhotos, SignalPriceIssue:
		return true
	default:
		return false
	}
}

// Valid returns true if t is a known signal type.
func (t SignalType) Valid() bool {
	switch t {
	case SignalNoise, SignalHumidity, SignalMisleadingPhotos, SignalPriceIssue,
		SignalHighActivity, SignalManyVisits, SignalCompetingOffers, SignalPriceDrop:
		return true
	default:
		return false
	}
}

// SignalSource distinguishes crowd reports from detector emissions.
type SignalSource string

const (
	SourceUser   SignalSource = "user"
	SourceSystem SignalSource = "system"
)

// SignalEvent is a single immutable observation in the append-only event log.
// User events carry the reporter and verified visit they originate from;
// system events carry neither.
type SignalEvent struct {
	ID         string       `json:"id"`
	PropertyID string       `json:"property_id"`
	Type       SignalType   `json:"signal_type"`
	Source     SignalSource `json:"source"`
	Weight     float64      `json:"weight"`
	ReporterID string       `json:"reporter_id,omitempty"` // empty for system events
	VisitID    string       `json:"visit_id,omitempty"`    // empty for system events
	ObservedAt time.Time    `json:"observed_at"`
}

// SignalStatus is the confirmation state of an aggregated signal. It is an
// explicit enum rather than a boolean so that consumers can detect the
// unconfirmed->confirmed edge against a previously persisted row.
type SignalStatus string

const (
	StatusUnconfirmed SignalStatus = "unconfirmed"
	StatusConfirmed   SignalStatus = "confirmed"
)

// SignalState is the derived per-(property, type) aggregate. It is recomputed
// wholesale from the event log and overwritten last-writer-wins; it is never
// patched incrementally.
type SignalState struct {
	PropertyID    string       `json:"property_id"`
	Type          SignalType   `json:"signal_type"`
	Strength      float64      `json:"strength"`
	Status        SignalStatus `json:"status"`
	ReporterCount int          `json:"reporter_count"` // distinct reporters within the confirmation window
	LastSeenAt    time.Time    `json:"last_seen_at"`
	RecomputedAt  time.Time    `json:"recomputed_at"`
}

// Confirmed reports whether the state is currently confirmed.
func (s SignalState) Confirmed() bool { return s.Status == StatusConfirmed }

// SignalEdge is published on the bus when a recomputation flips a signal's
// confirmation status. Watchers alert on the transition, not on the level.
type SignalEdge struct {
	PropertyID string       `json:"property_id"`
	Type       SignalType   `json:"signal_type"`
	From       SignalStatus `json:"from"`
	To         SignalStatus `json:"to"`
	Strength   float64      `json:"strength"`
	At         time.Time    `json:"at"`
}

// BatchFailure records one property that failed during a bulk recompute.
type BatchFailure struct {
	PropertyID string
	Err        error
}

// BatchResult summarizes a bulk recompute run. Failures never abort the run.
type BatchResult struct {
	Processed int
	Failures  []BatchFailure
}
