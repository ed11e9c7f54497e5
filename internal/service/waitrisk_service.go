package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

// WaitRiskService forecasts opportunity-loss risk over fixed horizons by
// composing the property's pressure with its zone's dynamics.
type WaitRiskService struct {
	cfg        engine.WaitRiskConfig
	properties domain.PropertyStore
	pressure   *PressureService
	dynamics   *DynamicsService
	logger     *slog.Logger
}

// NewWaitRiskService creates a WaitRiskService.
func NewWaitRiskService(
	cfg engine.WaitRiskConfig,
	properties domain.PropertyStore,
	pressure *PressureService,
	dynamics *DynamicsService,
	logger *slog.Logger,
) *WaitRiskService {
	return &WaitRiskService{
		cfg:        cfg,
		properties: properties,
		pressure:   pressure,
		dynamics:   dynamics,
		logger:     logger,
	}
}

// Forecast projects loss probability for a property over the configured
// horizons and derives the wait/act recommendation.
func (s *WaitRiskService) Forecast(ctx context.Context, propertyID string) (domain.WaitRiskForecast, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return domain.WaitRiskForecast{}, fmt.Errorf("waitrisk_service: load property %s: %w", propertyID, err)
	}

	pressure, err := s.pressure.Property(ctx, propertyID)
	if err != nil {
		return domain.WaitRiskForecast{}, fmt.Errorf("waitrisk_service: compose pressure: %w", err)
	}
	dynamics, err := s.dynamics.Zone(ctx, property.ZoneID)
	if err != nil {
		return domain.WaitRiskForecast{}, fmt.Errorf("waitrisk_service: zone dynamics: %w", err)
	}

	f := engine.ForecastWaitRisk(s.cfg, propertyID, pressure, dynamics, time.Now().UTC())

	s.logger.InfoContext(ctx, "waitrisk_service: forecast generated",
		slog.String("property_id", propertyID),
		slog.String("recommendation", string(f.Recommendation)),
	)
	return f, nil
}
