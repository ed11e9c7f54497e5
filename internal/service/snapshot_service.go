package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

// alertChannelPrefix is the pub/sub channel prefix for new negotiation
// alerts, keyed by offer id.
const alertChannelPrefix = "alerts:"

// SnapshotService generates and serves negotiation coherence snapshots.
// Snapshots are immutable append-only history; alert rows are created with
// each snapshot and delivered at most once.
type SnapshotService struct {
	offers     domain.OfferStore
	properties domain.PropertyStore
	snapshots  domain.SnapshotStore
	pressure   *PressureService
	dynamics   *DynamicsService
	bus        domain.SignalBus
	logger     *slog.Logger
}

// NewSnapshotService creates a SnapshotService.
func NewSnapshotService(
	offers domain.OfferStore,
	properties domain.PropertyStore,
	snapshots domain.SnapshotStore,
	pressure *PressureService,
	dynamics *DynamicsService,
	bus domain.SignalBus,
	logger *slog.Logger,
) *SnapshotService {
	return &SnapshotService{
		offers:     offers,
		properties: properties,
		snapshots:  snapshots,
		pressure:   pressure,
		dynamics:   dynamics,
		bus:        bus,
		logger:     logger,
	}
}

// Generate computes and persists a new snapshot for an offer thread. Alerts
// fire only on transitions against the previous snapshot, so regenerating a
// snapshot over an unchanged thread produces no new alerts.
func (s *SnapshotService) Generate(ctx context.Context, offerID string) (domain.NegotiationSnapshot, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: load offer %s: %w", offerID, err)
	}
	property, err := s.properties.GetByID(ctx, offer.PropertyID)
	if err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: load property %s: %w", offer.PropertyID, err)
	}

	events, err := s.offers.ListEvents(ctx, offerID)
	if err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: list events for %s: %w", offerID, err)
	}

	pressure, err := s.pressure.Property(ctx, offer.PropertyID)
	if err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: compose pressure: %w", err)
	}
	dynamics, err := s.dynamics.Zone(ctx, property.ZoneID)
	if err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: zone dynamics: %w", err)
	}

	var previous *domain.NegotiationSnapshot
	prev, err := s.snapshots.Latest(ctx, offerID)
	switch {
	case err == nil:
		previous = &prev
	case errors.Is(err, domain.ErrNotFound):
		// First snapshot for this thread.
	default:
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: load previous snapshot: %w", err)
	}

	snap := engine.ComputeSnapshot(engine.CoherenceInputs{
		OfferID:  offerID,
		Events:   events,
		Market:   domain.MarketContext{Pressure: pressure, Dynamics: dynamics},
		Previous: previous,
	}, time.Now().UTC())

	snap.ID = uuid.New().String()
	for i := range snap.Alerts {
		snap.Alerts[i].ID = uuid.New().String()
		snap.Alerts[i].SnapshotID = snap.ID
	}

	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: insert snapshot: %w", err)
	}

	for _, alert := range snap.Alerts {
		s.publishAlert(ctx, alert)
	}

	s.logger.InfoContext(ctx, "snapshot_service: snapshot generated",
		slog.String("offer_id", offerID),
		slog.String("alignment", string(snap.Alignment)),
		slog.Int("alerts", len(snap.Alerts)),
	)
	return snap, nil
}

// publishAlert pushes a freshly created alert onto the bus for watchers.
// Delivery bookkeeping stays in the store; a publish failure is non-fatal.
func (s *SnapshotService) publishAlert(ctx context.Context, alert domain.NegotiationAlert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot_service: marshal alert failed",
			slog.String("alert_id", alert.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, alertChannelPrefix+alert.OfferID, payload); err != nil {
		s.logger.WarnContext(ctx, "snapshot_service: publish alert failed",
			slog.String("alert_id", alert.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Latest returns the most recent snapshot for an offer.
func (s *SnapshotService) Latest(ctx context.Context, offerID string) (domain.NegotiationSnapshot, error) {
	snap, err := s.snapshots.Latest(ctx, offerID)
	if err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("snapshot_service: latest for %s: %w", offerID, err)
	}
	return snap, nil
}

// PendingAlerts returns undelivered alerts for an offer and marks them
// delivered, so each alert reaches a consumer at most once.
func (s *SnapshotService) PendingAlerts(ctx context.Context, offerID string) ([]domain.NegotiationAlert, error) {
	alerts, err := s.snapshots.ListUndeliveredAlerts(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("snapshot_service: list undelivered alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil, nil
	}

	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.ID
	}
	if err := s.snapshots.MarkAlertsDelivered(ctx, ids); err != nil {
		return nil, fmt.Errorf("snapshot_service: mark alerts delivered: %w", err)
	}
	return alerts, nil
}
