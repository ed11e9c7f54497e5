package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/service"
)

// RecomputeJob runs scheduled bulk recomputes so decayed signals unconfirm
// even when no new report arrives. The run is singleton across instances; a
// held lock means another instance is already on it and the tick is skipped.
type RecomputeJob struct {
	aggregator *service.AggregatorService
	logger     *slog.Logger
}

// NewRecomputeJob creates a RecomputeJob.
func NewRecomputeJob(aggregator *service.AggregatorService, logger *slog.Logger) *RecomputeJob {
	return &RecomputeJob{aggregator: aggregator, logger: logger}
}

// Run executes one bulk recompute pass.
func (j *RecomputeJob) Run(ctx context.Context) error {
	result, err := j.aggregator.RecomputeAll(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			j.logger.InfoContext(ctx, "recompute skipped, lock held elsewhere")
			return nil
		}
		return err
	}

	for _, f := range result.Failures {
		j.logger.WarnContext(ctx, "recompute failed for property",
			slog.String("property_id", f.PropertyID),
			slog.String("error", f.Err.Error()),
		)
	}
	return nil
}

// RunLoop runs bulk recomputes on a fixed interval until ctx is cancelled.
func (j *RecomputeJob) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := j.Run(ctx); err != nil {
		j.logger.ErrorContext(ctx, "bulk recompute failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.ErrorContext(ctx, "bulk recompute failed", slog.String("error", err.Error()))
			}
		}
	}
}
