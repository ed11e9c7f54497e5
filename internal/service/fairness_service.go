package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

// FairnessService scores offers against comparable-derived fair prices.
type FairnessService struct {
	cfg           engine.FairnessConfig
	fallbackZones int
	properties    domain.PropertyStore
	zones         domain.ZoneStore
	offers        domain.OfferStore
	logger        *slog.Logger
}

// NewFairnessService creates a FairnessService. fallbackZones bounds how many
// neighboring zones the comparable pool may widen into when the property's
// own zone is too sparse.
func NewFairnessService(
	cfg engine.FairnessConfig,
	fallbackZones int,
	properties domain.PropertyStore,
	zones domain.ZoneStore,
	offers domain.OfferStore,
	logger *slog.Logger,
) *FairnessService {
	return &FairnessService{
		cfg:           cfg,
		fallbackZones: fallbackZones,
		properties:    properties,
		zones:         zones,
		offers:        offers,
		logger:        logger,
	}
}

// AssessOffer scores a persisted offer against the fair price of its property.
func (s *FairnessService) AssessOffer(ctx context.Context, offerID string) (domain.FairnessAssessment, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return domain.FairnessAssessment{}, fmt.Errorf("fairness_service: load offer %s: %w", offerID, err)
	}
	return s.AssessAmount(ctx, offer.PropertyID, offer)
}

// AssessAmount scores an offer (persisted or hypothetical) against the fair
// price of the given property. A sparse comparable pool lowers confidence;
// it does not fail the assessment.
func (s *FairnessService) AssessAmount(ctx context.Context, propertyID string, offer domain.Offer) (domain.FairnessAssessment, error) {
	subject, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return domain.FairnessAssessment{}, fmt.Errorf("fairness_service: load property %s: %w", propertyID, err)
	}
	if offer.Amount <= 0 {
		return domain.FairnessAssessment{}, fmt.Errorf("fairness_service: offer amount must be positive: %w", domain.ErrValidation)
	}

	comparables, scope, err := s.comparablePool(ctx, subject)
	if err != nil {
		return domain.FairnessAssessment{}, err
	}

	estimate, err := engine.FairPriceEstimate(subject, comparables)
	if err != nil {
		return domain.FairnessAssessment{}, fmt.Errorf("fairness_service: estimate for %s: %w", propertyID, err)
	}

	assessment, err := engine.AssessFairness(s.cfg, offer, estimate, scope, comparables, time.Now().UTC())
	if err != nil {
		return domain.FairnessAssessment{}, fmt.Errorf("fairness_service: assess offer: %w", err)
	}

	if assessment.LowConfidence {
		s.logger.WarnContext(ctx, "fairness_service: sparse comparable pool",
			slog.String("property_id", propertyID),
			slog.Int("comparables", assessment.ComparableCount),
			slog.String("scope", string(scope)),
		)
	}
	return assessment, nil
}

// comparablePool builds the comparable set for the subject. It prefers the
// subject's own zone; when that pool is below the minimum it widens into the
// nearest zones and marks the scope as fallback.
func (s *FairnessService) comparablePool(ctx context.Context, subject domain.Property) ([]domain.Property, domain.ReferenceScope, error) {
	pool, err := s.properties.ListActiveByZone(ctx, subject.ZoneID)
	if err != nil {
		return nil, "", fmt.Errorf("fairness_service: list zone comparables for %s: %w", subject.ZoneID, err)
	}
	pool = excludeProperty(pool, subject.ID)
	if len(pool) >= s.cfg.MinComparables {
		return pool, domain.ScopeZone, nil
	}

	nearest, err := s.zones.ListNearest(ctx, subject.ZoneID, s.fallbackZones)
	if err != nil {
		return nil, "", fmt.Errorf("fairness_service: list nearest zones for %s: %w", subject.ZoneID, err)
	}
	for _, z := range nearest {
		extra, err := s.properties.ListActiveByZone(ctx, z.ID)
		if err != nil {
			return nil, "", fmt.Errorf("fairness_service: list fallback comparables for %s: %w", z.ID, err)
		}
		pool = append(pool, excludeProperty(extra, subject.ID)...)
		if len(pool) >= s.cfg.MinComparables {
			break
		}
	}
	return pool, domain.ScopeFallback, nil
}

func excludeProperty(pool []domain.Property, id string) []domain.Property {
	out := pool[:0]
	for _, p := range pool {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
