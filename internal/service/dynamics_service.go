package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

// DynamicsService serves zone market dynamics, cache first.
type DynamicsService struct {
	cfg        engine.DynamicsConfig
	properties domain.PropertyStore
	zones      domain.ZoneStore
	cache      domain.DynamicsCache
	logger     *slog.Logger
}

// NewDynamicsService creates a DynamicsService.
func NewDynamicsService(
	cfg engine.DynamicsConfig,
	properties domain.PropertyStore,
	zones domain.ZoneStore,
	cache domain.DynamicsCache,
	logger *slog.Logger,
) *DynamicsService {
	return &DynamicsService{
		cfg:        cfg,
		properties: properties,
		zones:      zones,
		cache:      cache,
		logger:     logger,
	}
}

// Zone returns the current market dynamics for a zone. Freshly computed
// results are written back to the cache; sparse zones come back stable with
// LowConfidence set rather than failing.
func (s *DynamicsService) Zone(ctx context.Context, zoneID string) (domain.ZoneMarketDynamics, error) {
	if d, err := s.cache.Get(ctx, zoneID); err == nil {
		return d, nil
	}
	return s.Refresh(ctx, zoneID)
}

// Refresh recomputes a zone's dynamics from its listings, bypassing the
// cached value, and stores the result.
func (s *DynamicsService) Refresh(ctx context.Context, zoneID string) (domain.ZoneMarketDynamics, error) {
	if _, err := s.zones.GetByID(ctx, zoneID); err != nil {
		return domain.ZoneMarketDynamics{}, fmt.Errorf("dynamics_service: load zone %s: %w", zoneID, err)
	}

	now := time.Now().UTC()
	listings, err := s.properties.ListByZoneSince(ctx, zoneID, now.Add(-s.cfg.Lookback))
	if err != nil {
		return domain.ZoneMarketDynamics{}, fmt.Errorf("dynamics_service: list zone listings for %s: %w", zoneID, err)
	}

	d := engine.AnalyzeZone(s.cfg, zoneID, listings, now)

	if err := s.cache.Set(ctx, d); err != nil {
		s.logger.WarnContext(ctx, "dynamics_service: cache set failed",
			slog.String("zone_id", zoneID),
			slog.String("error", err.Error()),
		)
	}
	return d, nil
}
