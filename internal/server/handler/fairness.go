package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// FairnessAssessor defines what the fairness handler needs.
type FairnessAssessor interface {
	AssessOffer(ctx context.Context, offerID string) (domain.FairnessAssessment, error)
	AssessAmount(ctx context.Context, propertyID string, offer domain.Offer) (domain.FairnessAssessment, error)
}

// FairnessHandler serves offer fairness endpoints.
type FairnessHandler struct {
	fairness FairnessAssessor
	logger   *slog.Logger
}

// NewFairnessHandler creates a FairnessHandler.
func NewFairnessHandler(fairness FairnessAssessor, logger *slog.Logger) *FairnessHandler {
	return &FairnessHandler{fairness: fairness, logger: logger}
}

// AssessOffer scores a persisted offer against the fair price.
// GET /api/offers/{id}/fairness
func (h *FairnessHandler) AssessOffer(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing offer id")
		return
	}

	a, err := h.fairness.AssessOffer(r.Context(), id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: fairness assessment failed",
			slog.String("offer_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// AssessAmount scores a hypothetical amount against a property's fair price.
// GET /api/properties/{id}/fairness?amount=190000
func (h *FairnessHandler) AssessAmount(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing property id")
		return
	}
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	a, err := h.fairness.AssessAmount(r.Context(), id, domain.Offer{Amount: amount})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: fairness assessment failed",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
