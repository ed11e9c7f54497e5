package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// DynamicsReader defines what the market handlers need for zone dynamics.
type DynamicsReader interface {
	Zone(ctx context.Context, zoneID string) (domain.ZoneMarketDynamics, error)
}

// PressureReader defines what the market handlers need for pressure states.
type PressureReader interface {
	Property(ctx context.Context, propertyID string) (domain.PressureState, error)
}

// WaitRiskForecaster defines what the market handlers need for wait-risk.
type WaitRiskForecaster interface {
	Forecast(ctx context.Context, propertyID string) (domain.WaitRiskForecast, error)
}

// MarketHandler serves zone dynamics, pressure and wait-risk endpoints.
type MarketHandler struct {
	dynamics DynamicsReader
	pressure PressureReader
	waitRisk WaitRiskForecaster
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(dynamics DynamicsReader, pressure PressureReader, waitRisk WaitRiskForecaster, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		dynamics: dynamics,
		pressure: pressure,
		waitRisk: waitRisk,
		logger:   logger,
	}
}

// ZoneDynamics returns the market dynamics for a zone.
// GET /api/zones/{id}/dynamics
func (h *MarketHandler) ZoneDynamics(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing zone id")
		return
	}

	d, err := h.dynamics.Zone(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: zone dynamics failed",
			slog.String("zone_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// PropertyPressure returns the composed pressure state for a property.
// GET /api/properties/{id}/pressure
func (h *MarketHandler) PropertyPressure(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing property id")
		return
	}

	p, err := h.pressure.Property(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: pressure failed",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// WaitRisk returns the horizon loss-probability forecast for a property.
// GET /api/properties/{id}/wait-risk
func (h *MarketHandler) WaitRisk(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing property id")
		return
	}

	f, err := h.waitRisk.Forecast(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: wait-risk forecast failed",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
