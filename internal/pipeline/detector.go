// Package pipeline runs the background loops of the engine: scheduled
// recomputation, system-signal detection, zone dynamics refresh, and
// cold-storage archival.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// SignalEmitter is the slice of the signal service the detector appends
// system events through.
type SignalEmitter interface {
	Emit(ctx context.Context, propertyID string, t domain.SignalType, weight float64) (domain.SignalEvent, error)
}

// Detector scans reference data and emits system signal events for the
// conditions users cannot report: competing offers, bursts of verified
// visits, price drops. Emission is best-effort; the aggregator's
// confirmation rules re-check live counts, so a duplicate emission cannot
// over-confirm a signal.
type Detector struct {
	signals    SignalEmitter
	states     domain.SignalStateStore
	offers     domain.OfferStore
	visits     domain.VisitStore
	properties domain.PropertyStore
	events     domain.SignalEventStore
	logger     *slog.Logger

	// lastPrices holds the listing price seen on the previous sweep, keyed
	// by property id, so the sweep notices decreases between sweeps.
	pricesMu   sync.Mutex
	lastPrices map[string]float64
}

// NewDetector creates a Detector.
func NewDetector(
	signals SignalEmitter,
	states domain.SignalStateStore,
	offers domain.OfferStore,
	visits domain.VisitStore,
	properties domain.PropertyStore,
	events domain.SignalEventStore,
	logger *slog.Logger,
) *Detector {
	return &Detector{
		signals:    signals,
		states:     states,
		offers:     offers,
		visits:     visits,
		properties: properties,
		events:     events,
		logger:     logger,
		lastPrices: make(map[string]float64),
	}
}

const (
	detectOfferThreshold = 2
	detectVisitThreshold = 5
	detectVisitWindow    = 48 * time.Hour

	// detectActivityThreshold is the combined visit+offer count that marks a
	// property as unusually active. Offers weigh double.
	detectActivityThreshold = 6

	// detectCooldown suppresses re-emission while a previous event of the
	// same type is recent enough to still drive confirmation.
	detectCooldown = 24 * time.Hour
)

// Run executes one detection sweep over every property with active offers
// plus every property already carrying signal events.
func (d *Detector) Run(ctx context.Context) error {
	now := time.Now().UTC()

	grouped, err := d.offers.CountActiveGrouped(ctx)
	if err != nil {
		return err
	}

	candidates := make(map[string]struct{}, len(grouped))
	for id := range grouped {
		candidates[id] = struct{}{}
	}
	ids, err := d.events.ListPropertyIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		candidates[id] = struct{}{}
	}

	emitted := 0
	for id := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		emitted += d.sweepProperty(ctx, id, grouped[id], now)
	}

	d.logger.InfoContext(ctx, "detector sweep complete",
		slog.Int("candidates", len(candidates)),
		slog.Int("emitted", emitted),
	)
	return nil
}

func (d *Detector) sweepProperty(ctx context.Context, propertyID string, activeOffers int, now time.Time) int {
	emitted := 0

	if activeOffers >= detectOfferThreshold {
		if d.emit(ctx, propertyID, domain.SignalCompetingOffers, now) {
			emitted++
		}
	}

	visits, err := d.visits.CountVerifiedSince(ctx, propertyID, now.Add(-detectVisitWindow))
	if err != nil {
		d.logger.WarnContext(ctx, "detector: visit count failed",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
		return emitted
	}
	if visits >= detectVisitThreshold {
		if d.emit(ctx, propertyID, domain.SignalManyVisits, now) {
			emitted++
		}
	}
	if visits+2*activeOffers >= detectActivityThreshold {
		if d.emit(ctx, propertyID, domain.SignalHighActivity, now) {
			emitted++
		}
	}

	if d.sweepPrice(ctx, propertyID) {
		emitted++
	}
	return emitted
}

// sweepPrice compares the property's listing price with the one recorded on
// the previous sweep and emits a price_drop on a decrease.
func (d *Detector) sweepPrice(ctx context.Context, propertyID string) bool {
	prop, err := d.properties.GetByID(ctx, propertyID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.logger.WarnContext(ctx, "detector: property read failed",
				slog.String("property_id", propertyID),
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	d.pricesMu.Lock()
	last, seen := d.lastPrices[propertyID]
	d.lastPrices[propertyID] = prop.Price
	d.pricesMu.Unlock()

	if !seen || prop.Price >= last {
		return false
	}
	if err := d.DetectPriceDrop(ctx, propertyID, last, prop.Price); err != nil {
		d.logger.WarnContext(ctx, "detector: price drop emit failed",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// emit appends one system event unless a recent one of the same type already
// exists. The cooldown check reads the current aggregated state's LastSeenAt
// rather than scanning the event log.
func (d *Detector) emit(ctx context.Context, propertyID string, t domain.SignalType, now time.Time) bool {
	state, err := d.states.Get(ctx, propertyID, t)
	if err == nil && now.Sub(state.LastSeenAt) < detectCooldown {
		return false
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		d.logger.WarnContext(ctx, "detector: state read failed",
			slog.String("property_id", propertyID),
			slog.String("signal_type", string(t)),
			slog.String("error", err.Error()),
		)
		return false
	}

	if _, err := d.signals.Emit(ctx, propertyID, t, 1.0); err != nil {
		d.logger.WarnContext(ctx, "detector: emit failed",
			slog.String("property_id", propertyID),
			slog.String("signal_type", string(t)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// DetectPriceDrop emits a price_drop event when a listing's price moved down.
// The sweep invokes it on decreases between sweeps; listing-change feeds can
// also invoke it directly with both prices.
func (d *Detector) DetectPriceDrop(ctx context.Context, propertyID string, oldPrice, newPrice float64) error {
	if oldPrice <= 0 || newPrice <= 0 || newPrice >= oldPrice {
		return nil
	}
	_, err := d.signals.Emit(ctx, propertyID, domain.SignalPriceDrop, 1.0)
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "detector: price drop",
		slog.String("property_id", propertyID),
		slog.Float64("old_price", oldPrice),
		slog.Float64("new_price", newPrice),
	)
	return nil
}

// RunLoop runs detection sweeps on a fixed interval until ctx is cancelled.
func (d *Detector) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := d.Run(ctx); err != nil {
		d.logger.ErrorContext(ctx, "detector sweep failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Run(ctx); err != nil {
				d.logger.ErrorContext(ctx, "detector sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
