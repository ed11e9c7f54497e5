// Package service implements the application services of the decision
// engine, composing the pure engine functions with stores, caches and the
// event bus.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// SignalService handles signal report intake and state reads. Every accepted
// report is appended to the immutable event log; derived state comes from
// the aggregator, never from the report path directly.
type SignalService struct {
	events     domain.SignalEventStore
	states     domain.SignalStateStore
	visits     domain.VisitStore
	properties domain.PropertyStore
	cache      domain.StateCache
	aggregator *AggregatorService
	logger     *slog.Logger
}

// NewSignalService creates a SignalService with all required dependencies.
func NewSignalService(
	events domain.SignalEventStore,
	states domain.SignalStateStore,
	visits domain.VisitStore,
	properties domain.PropertyStore,
	cache domain.StateCache,
	aggregator *AggregatorService,
	logger *slog.Logger,
) *SignalService {
	return &SignalService{
		events:     events,
		states:     states,
		visits:     visits,
		properties: properties,
		cache:      cache,
		aggregator: aggregator,
		logger:     logger,
	}
}

// ReportRequest is a user signal report tied to a verified visit on the
// named property.
type ReportRequest struct {
	PropertyID string
	ReporterID string
	VisitID    string
	Type       domain.SignalType
}

// Report validates and appends a user signal report, then recomputes the
// property's states inline so the reporter sees the effect immediately.
//
// Validation failures return domain.ErrValidation; a duplicate report for
// the same (reporter, visit, type) returns domain.ErrConflict.
func (s *SignalService) Report(ctx context.Context, req ReportRequest) (domain.SignalEvent, error) {
	if req.PropertyID == "" || req.ReporterID == "" || req.VisitID == "" {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: property, reporter and visit are required: %w", domain.ErrValidation)
	}
	if !req.Type.Valid() || !req.Type.UserReportable() {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: type %q is not user-reportable: %w", req.Type, domain.ErrValidation)
	}

	visit, err := s.visits.GetByID(ctx, req.VisitID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SignalEvent{}, fmt.Errorf("signal_service: visit %s not found: %w", req.VisitID, domain.ErrValidation)
		}
		return domain.SignalEvent{}, fmt.Errorf("signal_service: load visit %s: %w", req.VisitID, err)
	}
	if visit.PropertyID != req.PropertyID {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: visit %s is not for property %s: %w", req.VisitID, req.PropertyID, domain.ErrValidation)
	}
	if visit.VisitorID != req.ReporterID {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: visit %s does not belong to reporter: %w", req.VisitID, domain.ErrValidation)
	}
	if visit.Status != domain.VisitCompleted || !visit.Verified() {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: visit %s is not completed and verified: %w", req.VisitID, domain.ErrValidation)
	}

	dup, err := s.events.Exists(ctx, req.ReporterID, req.VisitID, req.Type)
	if err != nil {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: check duplicate report: %w", err)
	}
	if dup {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: %s already reported for visit %s: %w", req.Type, req.VisitID, domain.ErrConflict)
	}

	ev := domain.SignalEvent{
		ID:         uuid.New().String(),
		PropertyID: visit.PropertyID,
		Type:       req.Type,
		Source:     domain.SourceUser,
		Weight:     1.0,
		ReporterID: req.ReporterID,
		VisitID:    req.VisitID,
		ObservedAt: time.Now().UTC(),
	}
	if err := s.events.Append(ctx, ev); err != nil {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: append report: %w", err)
	}

	s.logger.InfoContext(ctx, "signal_service: report accepted",
		slog.String("property_id", ev.PropertyID),
		slog.String("signal_type", string(ev.Type)),
	)

	// Recompute inline. A failure here leaves the log intact; the next
	// scheduled recompute converges to the same states.
	if _, err := s.aggregator.Recompute(ctx, ev.PropertyID); err != nil {
		s.logger.WarnContext(ctx, "signal_service: inline recompute failed",
			slog.String("property_id", ev.PropertyID),
			slog.String("error", err.Error()),
		)
	}

	return ev, nil
}

// Emit appends a system-generated signal event. System events carry no
// reporter or visit; detectors are trusted to deduplicate their own output.
func (s *SignalService) Emit(ctx context.Context, propertyID string, t domain.SignalType, weight float64) (domain.SignalEvent, error) {
	if !t.Valid() || t.UserReportable() {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: type %q is not system-emittable: %w", t, domain.ErrValidation)
	}
	if weight <= 0 {
		weight = 1.0
	}

	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SignalEvent{}, fmt.Errorf("signal_service: property %s not found: %w", propertyID, domain.ErrValidation)
		}
		return domain.SignalEvent{}, fmt.Errorf("signal_service: load property %s: %w", propertyID, err)
	}

	ev := domain.SignalEvent{
		ID:         uuid.New().String(),
		PropertyID: propertyID,
		Type:       t,
		Source:     domain.SourceSystem,
		Weight:     weight,
		ObservedAt: time.Now().UTC(),
	}
	if err := s.events.Append(ctx, ev); err != nil {
		return domain.SignalEvent{}, fmt.Errorf("signal_service: append system event: %w", err)
	}

	if _, err := s.aggregator.Recompute(ctx, propertyID); err != nil {
		s.logger.WarnContext(ctx, "signal_service: inline recompute failed",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
	}

	return ev, nil
}

// States returns the current aggregated states for a property, cache first.
func (s *SignalService) States(ctx context.Context, propertyID string) ([]domain.SignalState, error) {
	states, err := s.cache.GetStates(ctx, propertyID)
	if err == nil {
		return states, nil
	}

	states, err = s.states.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("signal_service: list states for %s: %w", propertyID, err)
	}

	if cacheErr := s.cache.SetStates(ctx, propertyID, states); cacheErr != nil {
		s.logger.WarnContext(ctx, "signal_service: cache set failed",
			slog.String("property_id", propertyID),
			slog.String("error", cacheErr.Error()),
		)
	}
	return states, nil
}
