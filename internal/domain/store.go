package domain

import (
	"context"
	"time"
)

// SignalEventStore persists the append-only signal event log.
type SignalEventStore interface {
	Append(ctx context.Context, ev SignalEvent) error
	// Exists reports whether the reporter already reported this signal type
	// for this visit.
	Exists(ctx context.Context, reporterID, visitID string, t SignalType) (bool, error)
	// ListByProperty returns all events for a property observed at or after
	// since, oldest first.
	ListByProperty(ctx context.Context, propertyID string, since time.Time) ([]SignalEvent, error)
	// ListPropertyIDs returns every property id with at least one event.
	ListPropertyIDs(ctx context.Context) ([]string, error)
	ListBefore(ctx context.Context, before time.Time) ([]SignalEvent, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SignalStateStore persists derived signal aggregates. ReplaceAll overwrites
// every row for the property in one transaction so concurrent recomputes are
// last-writer-wins with no partial state visible.
type SignalStateStore interface {
	ReplaceAll(ctx context.Context, propertyID string, states []SignalState) error
	ListByProperty(ctx context.Context, propertyID string) ([]SignalState, error)
	Get(ctx context.Context, propertyID string, t SignalType) (SignalState, error)
}

// PropertyStore reads property reference data owned by the listing subsystem.
type PropertyStore interface {
	GetByID(ctx context.Context, id string) (Property, error)
	// ListActiveByZone returns active listings in a zone (comparable pool).
	ListActiveByZone(ctx context.Context, zoneID string) ([]Property, error)
	// ListByZoneSince returns listings (any status) listed at or after since.
	ListByZoneSince(ctx context.Context, zoneID string, since time.Time) ([]Property, error)
}

// ZoneStore reads zone reference data.
type ZoneStore interface {
	GetByID(ctx context.Context, id string) (Zone, error)
	// ListNearest returns up to limit zones ordered by centroid distance from
	// the given zone, excluding the zone itself.
	ListNearest(ctx context.Context, zoneID string, limit int) ([]Zone, error)
}

// VisitStore reads visit reference data used for report validation and
// recent-activity counts.
type VisitStore interface {
	GetByID(ctx context.Context, id string) (Visit, error)
	CountVerifiedSince(ctx context.Context, propertyID string, since time.Time) (int, error)
}

// OfferStore reads offer reference data and negotiation history.
type OfferStore interface {
	GetByID(ctx context.Context, id string) (Offer, error)
	// CountActive returns the number of pending/countered offers on a property.
	CountActive(ctx context.Context, propertyID string) (int, error)
	// CountActiveGrouped returns active-offer counts keyed by property id,
	// for every property with at least one active offer.
	CountActiveGrouped(ctx context.Context) (map[string]int, error)
	ListEvents(ctx context.Context, offerID string) ([]NegotiationEvent, error)
}

// SnapshotStore persists negotiation snapshots as append-only history
// together with their alerts.
type SnapshotStore interface {
	Insert(ctx context.Context, snap NegotiationSnapshot) error
	// Latest returns the most recent snapshot for an offer, or ErrNotFound
	// when no snapshot exists yet.
	Latest(ctx context.Context, offerID string) (NegotiationSnapshot, error)
	ListUndeliveredAlerts(ctx context.Context, offerID string) ([]NegotiationAlert, error)
	MarkAlertsDelivered(ctx context.Context, alertIDs []string) error
	ListBefore(ctx context.Context, before time.Time) ([]NegotiationSnapshot, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
