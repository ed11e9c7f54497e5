package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/service"
)

// Intervals carries the tick periods for each background loop.
type Intervals struct {
	Recompute time.Duration
	Detect    time.Duration
	Dynamics  time.Duration
	Archive   time.Duration
}

// Orchestrator manages all background goroutines: scheduled recomputation,
// system-signal detection, zone dynamics refresh, and archival.
type Orchestrator struct {
	recompute  *RecomputeJob
	detector   *Detector
	archive    *ArchiveJob
	dynamics   *service.DynamicsService
	events     domain.SignalEventStore
	properties domain.PropertyStore
	intervals  Intervals
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator coordinating all background loops.
func NewOrchestrator(
	recompute *RecomputeJob,
	detector *Detector,
	archive *ArchiveJob,
	dynamics *service.DynamicsService,
	events domain.SignalEventStore,
	properties domain.PropertyStore,
	intervals Intervals,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		recompute:  recompute,
		detector:   detector,
		archive:    archive,
		dynamics:   dynamics,
		events:     events,
		properties: properties,
		intervals:  intervals,
		logger:     logger,
	}
}

// Run starts every loop as a concurrent goroutine under an errgroup. Each
// loop respects ctx cancellation; a non-context error from any loop cancels
// the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("recompute_interval", o.intervals.Recompute),
		slog.Duration("detect_interval", o.intervals.Detect),
		slog.Duration("dynamics_interval", o.intervals.Dynamics),
		slog.Duration("archive_interval", o.intervals.Archive),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.recompute.RunLoop(ctx, o.intervals.Recompute)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("recompute loop: %w", err)
	})

	g.Go(func() error {
		err := o.detector.RunLoop(ctx, o.intervals.Detect)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("detector loop: %w", err)
	})

	g.Go(func() error {
		err := o.runDynamicsLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("dynamics loop: %w", err)
	})

	if o.archive != nil {
		g.Go(func() error {
			err := o.archive.RunLoop(ctx, o.intervals.Archive)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archive loop: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

// runDynamicsLoop periodically refreshes dynamics for every zone that hosts
// a property with signal activity, keeping the cache warm for reads.
func (o *Orchestrator) runDynamicsLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.intervals.Dynamics)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.refreshActiveZones(ctx); err != nil {
				o.logger.ErrorContext(ctx, "dynamics refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (o *Orchestrator) refreshActiveZones(ctx context.Context) error {
	ids, err := o.events.ListPropertyIDs(ctx)
	if err != nil {
		return fmt.Errorf("list property ids: %w", err)
	}

	zones := make(map[string]struct{})
	for _, id := range ids {
		p, err := o.properties.GetByID(ctx, id)
		if err != nil {
			o.logger.WarnContext(ctx, "dynamics refresh: property load failed",
				slog.String("property_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		zones[p.ZoneID] = struct{}{}
	}

	refreshed := 0
	for zoneID := range zones {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := o.dynamics.Refresh(ctx, zoneID); err != nil {
			o.logger.WarnContext(ctx, "dynamics refresh: zone failed",
				slog.String("zone_id", zoneID),
				slog.String("error", err.Error()),
			)
			continue
		}
		refreshed++
	}

	o.logger.InfoContext(ctx, "dynamics refresh complete", slog.Int("zones", refreshed))
	return nil
}
