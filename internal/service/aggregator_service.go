package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

const (
	// recentVisitWindow is the trailing window for the many_visits live count.
	recentVisitWindow = 48 * time.Hour

	recomputeLockKey = "locks:recompute"
	recomputeLockTTL = 10 * time.Minute

	edgeChannelPrefix = "edges:"
	edgeStream        = "stream:edges"

	// maxEdgeHistory bounds one EdgeHistory read.
	maxEdgeHistory = 500
)

// AggregatorService recomputes derived signal states from the event log.
// Recomputation is wholesale and idempotent: it reads every event in the
// window, rebuilds all states and overwrites them in one transaction.
type AggregatorService struct {
	cfg    engine.AggregateConfig
	conc   int
	events domain.SignalEventStore
	states domain.SignalStateStore
	visits domain.VisitStore
	offers domain.OfferStore
	cache  domain.StateCache
	bus    domain.SignalBus
	locks  domain.LockManager
	logger *slog.Logger
}

// NewAggregatorService creates an AggregatorService. concurrency bounds the
// number of parallel per-property recomputes during bulk runs.
func NewAggregatorService(
	cfg engine.AggregateConfig,
	concurrency int,
	events domain.SignalEventStore,
	states domain.SignalStateStore,
	visits domain.VisitStore,
	offers domain.OfferStore,
	cache domain.StateCache,
	bus domain.SignalBus,
	locks domain.LockManager,
	logger *slog.Logger,
) *AggregatorService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AggregatorService{
		cfg:    cfg,
		conc:   concurrency,
		events: events,
		states: states,
		visits: visits,
		offers: offers,
		cache:  cache,
		bus:    bus,
		locks:  locks,
		logger: logger,
	}
}

// Recompute rebuilds all signal states for one property, publishes any
// confirmation edges the rebuild produced, and returns the fresh states.
// Types whose events all aged out of the window are carried over as
// zero-strength unconfirmed rows so they unconfirm through an edge instead
// of vanishing.
func (s *AggregatorService) Recompute(ctx context.Context, propertyID string) ([]domain.SignalState, error) {
	now := time.Now().UTC()

	events, err := s.events.ListByProperty(ctx, propertyID, now.Add(-s.cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("aggregator_service: list events for %s: %w", propertyID, err)
	}

	activeOffers, err := s.offers.CountActive(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("aggregator_service: count active offers for %s: %w", propertyID, err)
	}
	recentVisits, err := s.visits.CountVerifiedSince(ctx, propertyID, now.Add(-recentVisitWindow))
	if err != nil {
		return nil, fmt.Errorf("aggregator_service: count recent visits for %s: %w", propertyID, err)
	}

	prev, err := s.states.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("aggregator_service: list previous states for %s: %w", propertyID, err)
	}

	live := engine.LiveCounts{ActiveOffers: activeOffers, RecentVisits: recentVisits}
	curr := engine.Carryover(prev, engine.Aggregate(s.cfg, events, live, now), now)

	if err := s.states.ReplaceAll(ctx, propertyID, curr); err != nil {
		return nil, fmt.Errorf("aggregator_service: replace states for %s: %w", propertyID, err)
	}

	for _, edge := range engine.Edges(prev, curr, now) {
		s.publishEdge(ctx, edge)
	}

	if err := s.cache.SetStates(ctx, propertyID, curr); err != nil {
		s.logger.WarnContext(ctx, "aggregator_service: cache set failed",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
		// Drop whatever the cache still holds so readers fall back to the
		// store instead of serving pre-recompute states.
		if invErr := s.cache.Invalidate(ctx, propertyID); invErr != nil {
			s.logger.WarnContext(ctx, "aggregator_service: cache invalidate failed",
				slog.String("property_id", propertyID),
				slog.String("error", invErr.Error()),
			)
		}
	}
	return curr, nil
}

// publishEdge fans one confirmation edge out to the pub/sub channel for live
// watchers and the durable stream for catch-up readers. Neither failure is
// fatal; states are already persisted.
func (s *AggregatorService) publishEdge(ctx context.Context, edge domain.SignalEdge) {
	payload, err := json.Marshal(edge)
	if err != nil {
		s.logger.WarnContext(ctx, "aggregator_service: marshal edge failed",
			slog.String("property_id", edge.PropertyID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, edgeChannelPrefix+edge.PropertyID, payload); err != nil {
		s.logger.WarnContext(ctx, "aggregator_service: publish edge failed",
			slog.String("property_id", edge.PropertyID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, edgeStream, payload); err != nil {
		s.logger.WarnContext(ctx, "aggregator_service: stream append failed",
			slog.String("property_id", edge.PropertyID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "aggregator_service: signal edge",
		slog.String("property_id", edge.PropertyID),
		slog.String("signal_type", string(edge.Type)),
		slog.String("from", string(edge.From)),
		slog.String("to", string(edge.To)),
	)
}

// EdgeRecord pairs a stream cursor with the edge read at that position, so
// callers can resume from the last record they saw.
type EdgeRecord struct {
	StreamID string            `json:"stream_id"`
	Edge     domain.SignalEdge `json:"edge"`
}

// EdgeHistory replays confirmation edges from the durable stream, starting
// after lastID. Pass "0" (or empty) to read from the beginning. Payloads
// that fail to decode are skipped.
func (s *AggregatorService) EdgeHistory(ctx context.Context, lastID string, limit int) ([]EdgeRecord, error) {
	if lastID == "" {
		lastID = "0"
	}
	if limit < 1 || limit > maxEdgeHistory {
		limit = maxEdgeHistory
	}

	msgs, err := s.bus.StreamRead(ctx, edgeStream, lastID, limit)
	if err != nil {
		return nil, fmt.Errorf("aggregator_service: read edge stream: %w", err)
	}

	records := make([]EdgeRecord, 0, len(msgs))
	for _, m := range msgs {
		var edge domain.SignalEdge
		if err := json.Unmarshal(m.Payload, &edge); err != nil {
			s.logger.WarnContext(ctx, "aggregator_service: bad edge in stream",
				slog.String("stream_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, EdgeRecord{StreamID: m.ID, Edge: edge})
	}
	return records, nil
}

// RecomputeAll runs Recompute over every property with at least one event.
// A distributed lock keeps the run singleton across instances; if another
// instance holds the lock the run is skipped with ErrLockHeld. Per-property
// failures are collected, never aborting the run.
func (s *AggregatorService) RecomputeAll(ctx context.Context) (domain.BatchResult, error) {
	unlock, err := s.locks.Acquire(ctx, recomputeLockKey, recomputeLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return domain.BatchResult{}, err
		}
		return domain.BatchResult{}, fmt.Errorf("aggregator_service: acquire recompute lock: %w", err)
	}
	defer unlock()

	ids, err := s.events.ListPropertyIDs(ctx)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("aggregator_service: list property ids: %w", err)
	}

	var (
		mu     sync.Mutex
		result = domain.BatchResult{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.conc)
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.Recompute(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			result.Processed++
			if err != nil {
				result.Failures = append(result.Failures, domain.BatchFailure{PropertyID: id, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "aggregator_service: bulk recompute finished",
		slog.Int("processed", result.Processed),
		slog.Int("failures", len(result.Failures)),
	)
	return result, nil
}
