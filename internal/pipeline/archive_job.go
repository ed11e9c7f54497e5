package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// ArchiveJob moves aged signal events and snapshots to cold storage and then
// prunes them from the primary store. Rows are deleted only after their
// archive upload succeeded, so a failed run never loses data.
type ArchiveJob struct {
	archiver      domain.Archiver
	events        domain.SignalEventStore
	snapshots     domain.SnapshotStore
	retentionDays int
	logger        *slog.Logger
}

// NewArchiveJob creates an ArchiveJob.
func NewArchiveJob(
	archiver domain.Archiver,
	events domain.SignalEventStore,
	snapshots domain.SnapshotStore,
	retentionDays int,
	logger *slog.Logger,
) *ArchiveJob {
	return &ArchiveJob{
		archiver:      archiver,
		events:        events,
		snapshots:     snapshots,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Run executes a single archive pass.
func (j *ArchiveJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(j.retentionDays) * 24 * time.Hour)
	j.logger.InfoContext(ctx, "archive run starting",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", j.retentionDays),
	)

	archived, err := j.archiver.ArchiveSignalEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive signal events before %v: %w", cutoff, err)
	}
	if archived > 0 {
		deleted, err := j.events.DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("pipeline: prune signal events before %v: %w", cutoff, err)
		}
		j.logger.InfoContext(ctx, "archived signal events",
			slog.Int64("archived", archived),
			slog.Int64("deleted", deleted),
		)
	}

	archived, err = j.archiver.ArchiveSnapshots(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive snapshots before %v: %w", cutoff, err)
	}
	if archived > 0 {
		deleted, err := j.snapshots.DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("pipeline: prune snapshots before %v: %w", cutoff, err)
		}
		j.logger.InfoContext(ctx, "archived snapshots",
			slog.Int64("archived", archived),
			slog.Int64("deleted", deleted),
		)
	}

	return nil
}

// RunLoop runs archive passes on a fixed interval until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (j *ArchiveJob) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
