package domain

import "time"

// VisitStatus is the lifecycle state of a property visit.
type VisitStatus string

const (
	VisitScheduled VisitStatus = "scheduled"
	VisitCompleted VisitStatus = "completed"
	VisitCancelled VisitStatus = "cancelled"
)

// Visit is reference data from the visit subsystem. VerifiedAt is set once
// the visit passed GPS/time verification; only completed, verified visits
// qualify their visitor to report signals.
type Visit struct {
	ID         string
	PropertyID string
	VisitorID  string
	Status     VisitStatus
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// Verified reports whether the visit passed location/time verification.
func (v Visit) Verified() bool { return v.VerifiedAt != nil }
