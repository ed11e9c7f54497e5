package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

// PressureService composes the competitive-pressure view for a property from
// live counts and confirmed signal states.
type PressureService struct {
	states     domain.SignalStateStore
	offers     domain.OfferStore
	visits     domain.VisitStore
	properties domain.PropertyStore
	cache      domain.PressureCache
	logger     *slog.Logger
}

// NewPressureService creates a PressureService.
func NewPressureService(
	states domain.SignalStateStore,
	offers domain.OfferStore,
	visits domain.VisitStore,
	properties domain.PropertyStore,
	cache domain.PressureCache,
	logger *slog.Logger,
) *PressureService {
	return &PressureService{
		states:     states,
		offers:     offers,
		visits:     visits,
		properties: properties,
		cache:      cache,
		logger:     logger,
	}
}

// Property returns the current pressure state, cache first. The cache TTL
// is short because the level folds in live offer counts.
func (s *PressureService) Property(ctx context.Context, propertyID string) (domain.PressureState, error) {
	if p, err := s.cache.Get(ctx, propertyID); err == nil {
		return p, nil
	}
	return s.Compose(ctx, propertyID)
}

// Compose recomputes pressure from live counts and confirmed states,
// bypassing the cached value, and stores the result.
func (s *PressureService) Compose(ctx context.Context, propertyID string) (domain.PressureState, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return domain.PressureState{}, fmt.Errorf("pressure_service: load property %s: %w", propertyID, err)
	}

	now := time.Now().UTC()

	activeOffers, err := s.offers.CountActive(ctx, propertyID)
	if err != nil {
		return domain.PressureState{}, fmt.Errorf("pressure_service: count active offers for %s: %w", propertyID, err)
	}
	recentVisits, err := s.visits.CountVerifiedSince(ctx, propertyID, now.Add(-recentVisitWindow))
	if err != nil {
		return domain.PressureState{}, fmt.Errorf("pressure_service: count recent visits for %s: %w", propertyID, err)
	}

	in := engine.PressureInputs{
		PropertyID:            propertyID,
		ActiveOffers:          activeOffers,
		RecentVisits:          recentVisits,
		HighActivityConfirmed: s.confirmed(ctx, propertyID, domain.SignalHighActivity),
		ManyVisitsConfirmed:   s.confirmed(ctx, propertyID, domain.SignalManyVisits),
		CompetingConfirmed:    s.confirmed(ctx, propertyID, domain.SignalCompetingOffers),
	}

	p := engine.ComposePressure(in, now)

	if err := s.cache.Set(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "pressure_service: cache set failed",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

// confirmed reads one signal state's confirmation flag. A missing state means
// the signal has never fired; read errors degrade to unconfirmed with a log
// line rather than failing the composition.
func (s *PressureService) confirmed(ctx context.Context, propertyID string, t domain.SignalType) bool {
	state, err := s.states.Get(ctx, propertyID, t)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "pressure_service: state read failed",
				slog.String("property_id", propertyID),
				slog.String("signal_type", string(t)),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	return state.Confirmed()
}
