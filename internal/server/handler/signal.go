package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/service"
)

// SignalReporter defines what the signal handler needs from the service
// layer. Declared locally so the handler package does not depend on concrete
// service implementations.
type SignalReporter interface {
	Report(ctx context.Context, req service.ReportRequest) (domain.SignalEvent, error)
	States(ctx context.Context, propertyID string) ([]domain.SignalState, error)
}

// Recomputer triggers recomputation runs and replays the edge stream.
type Recomputer interface {
	Recompute(ctx context.Context, propertyID string) ([]domain.SignalState, error)
	RecomputeAll(ctx context.Context) (domain.BatchResult, error)
	EdgeHistory(ctx context.Context, lastID string, limit int) ([]service.EdgeRecord, error)
}

// SignalHandler serves signal reporting and state endpoints.
type SignalHandler struct {
	signals    SignalReporter
	aggregator Recomputer
	logger     *slog.Logger
}

// NewSignalHandler creates a SignalHandler.
func NewSignalHandler(signals SignalReporter, aggregator Recomputer, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		signals:    signals,
		aggregator: aggregator,
		logger:     logger,
	}
}

type reportRequest struct {
	PropertyID string `json:"property_id"`
	ReporterID string `json:"reporter_id"`
	VisitID    string `json:"visit_id"`
	SignalType string `json:"signal_type"`
}

// Report accepts a user signal report tied to a verified visit.
// POST /api/signals/report
func (h *SignalHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ev, err := h.signals.Report(r.Context(), service.ReportRequest{
		PropertyID: req.PropertyID,
		ReporterID: req.ReporterID,
		VisitID:    req.VisitID,
		Type:       domain.SignalType(req.SignalType),
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: report rejected",
			slog.String("visit_id", req.VisitID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

type recomputeRequest struct {
	PropertyID string `json:"property_id"`
}

type recomputeResponse struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Recompute triggers recomputation for one property, or for every property
// with events when the body names none. The single-property form responds
// with the recomputed states.
// POST /api/signals/recompute
func (h *SignalHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var req recomputeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if req.PropertyID != "" {
		states, err := h.aggregator.Recompute(r.Context(), req.PropertyID)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "handler: recompute failed",
				slog.String("property_id", req.PropertyID),
				slog.String("error", err.Error()),
			)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statesResponse{PropertyID: req.PropertyID, Signals: states})
		return
	}

	result, err := h.aggregator.RecomputeAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: bulk recompute failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recomputeResponse{
		Processed: result.Processed,
		Failed:    len(result.Failures),
	})
}

type edgesResponse struct {
	Edges []service.EdgeRecord `json:"edges"`
}

// ListEdges replays recent confirmation edges from the durable stream.
// GET /api/signals/edges?after=<stream id>&limit=100
func (h *SignalHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.aggregator.EdgeHistory(r.Context(), after, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: edge history failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edgesResponse{Edges: records})
}

type statesResponse struct {
	PropertyID string               `json:"property_id"`
	Signals    []domain.SignalState `json:"signals"`
}

// ListStates returns the aggregated signal states for a property.
// GET /api/properties/{id}/signals
func (h *SignalHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing property id")
		return
	}

	states, err := h.signals.States(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list states failed",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statesResponse{PropertyID: id, Signals: states})
}
