package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pricewaze/pricewaze-backend/internal/notify"
	"github.com/pricewaze/pricewaze-backend/internal/pipeline"
	"github.com/pricewaze/pricewaze-backend/internal/server"
	"github.com/pricewaze/pricewaze-backend/internal/server/handler"
	"github.com/pricewaze/pricewaze-backend/internal/server/ws"
)

// shutdownGrace is how long in-flight HTTP requests get to finish.
const shutdownGrace = 10 * time.Second

// ServerMode runs the HTTP/WebSocket API plus the notification watcher.
// Background recomputation is left to a batch instance.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	a.startWatcher(ctx, g, deps)
	return g.Wait()
}

// BatchMode runs the background pipelines only: scheduled recompute,
// detection sweeps, dynamics refresh and archival.
func (a *App) BatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting batch mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, deps)
	return g.Wait()
}

// DetectMode runs only the system-signal detector, for debugging detector
// rules against live reference data.
func (a *App) DetectMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting detect mode")

	detector := a.buildDetector(deps)
	err := detector.RunLoop(ctx, a.cfg.Pipeline.DetectInterval.Duration)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// FullMode runs the API server, the notification watcher and all background
// pipelines in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	a.startWatcher(ctx, g, deps)
	a.startPipeline(ctx, g, deps)
	return g.Wait()
}

// startServer builds the handler set, the WebSocket hub and the HTTP server,
// and registers their goroutines on the group.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled by config")
		return
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Signals:   handler.NewSignalHandler(deps.Signals, deps.Aggregator, a.logger),
		Fairness:  handler.NewFairnessHandler(deps.Fairness, a.logger),
		Market:    handler.NewMarketHandler(deps.Dynamics, deps.Pressure, deps.WaitRisk, a.logger),
		Coherence: handler.NewCoherenceHandler(deps.Snapshot, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	})
}

// startWatcher subscribes the notifier to signal edges.
func (a *App) startWatcher(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	watcher := notify.NewEdgeWatcher(deps.SignalBus, deps.Notifier, a.logger)
	g.Go(func() error {
		err := watcher.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
}

// startPipeline builds and runs the background orchestrator.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Pipeline.Enabled {
		a.logger.InfoContext(ctx, "pipeline disabled by config")
		return
	}

	recompute := pipeline.NewRecomputeJob(deps.Aggregator, a.logger)
	detector := a.buildDetector(deps)

	var archive *pipeline.ArchiveJob
	if deps.Archiver != nil {
		archive = pipeline.NewArchiveJob(
			deps.Archiver, deps.SignalEvents, deps.Snapshots,
			a.cfg.Pipeline.ArchiveRetentionDays, a.logger,
		)
	}

	orchestrator := pipeline.NewOrchestrator(
		recompute, detector, archive, deps.Dynamics,
		deps.SignalEvents, deps.Properties,
		pipeline.Intervals{
			Recompute: a.cfg.Pipeline.RecomputeInterval.Duration,
			Detect:    a.cfg.Pipeline.DetectInterval.Duration,
			Dynamics:  a.cfg.Pipeline.DynamicsInterval.Duration,
			Archive:   a.cfg.Pipeline.ArchiveInterval.Duration,
		},
		a.logger,
	)

	g.Go(func() error {
		err := orchestrator.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			notifyCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if nerr := deps.Notifier.Notify(notifyCtx, notify.EventError,
				"Pipeline stopped", err.Error()); nerr != nil {
				a.logger.Warn("pipeline failure notification failed",
					slog.String("error", nerr.Error()))
			}
		}
		return err
	})
}

func (a *App) buildDetector(deps *Dependencies) *pipeline.Detector {
	return pipeline.NewDetector(
		deps.Signals, deps.SignalStates, deps.Offers, deps.Visits,
		deps.Properties, deps.SignalEvents, a.logger,
	)
}
