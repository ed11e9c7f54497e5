package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// SnapshotProvider defines what the coherence handler needs.
type SnapshotProvider interface {
	Generate(ctx context.Context, offerID string) (domain.NegotiationSnapshot, error)
	Latest(ctx context.Context, offerID string) (domain.NegotiationSnapshot, error)
	PendingAlerts(ctx context.Context, offerID string) ([]domain.NegotiationAlert, error)
}

// CoherenceHandler serves negotiation snapshot endpoints.
type CoherenceHandler struct {
	snapshots SnapshotProvider
	logger    *slog.Logger
}

// NewCoherenceHandler creates a CoherenceHandler.
func NewCoherenceHandler(snapshots SnapshotProvider, logger *slog.Logger) *CoherenceHandler {
	return &CoherenceHandler{snapshots: snapshots, logger: logger}
}

// Latest returns the most recent snapshot for an offer thread.
// GET /api/offers/{id}/coherence
func (h *CoherenceHandler) Latest(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing offer id")
		return
	}

	snap, err := h.snapshots.Latest(r.Context(), id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: latest snapshot failed",
			slog.String("offer_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Recalculate generates and persists a fresh snapshot for an offer thread.
// POST /api/offers/{id}/coherence/recalculate
func (h *CoherenceHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing offer id")
		return
	}

	snap, err := h.snapshots.Generate(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: snapshot generation failed",
			slog.String("offer_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

type alertsResponse struct {
	OfferID string                    `json:"offer_id"`
	Alerts  []domain.NegotiationAlert `json:"alerts"`
}

// Alerts drains undelivered alerts for an offer thread. Each alert is
// returned at most once.
// GET /api/offers/{id}/alerts
func (h *CoherenceHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing offer id")
		return
	}

	alerts, err := h.snapshots.PendingAlerts(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: pending alerts failed",
			slog.String("offer_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse{OfferID: id, Alerts: alerts})
}
