package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/pricewaze/pricewaze-backend/internal/blob/s3"
	"github.com/pricewaze/pricewaze-backend/internal/cache/redis"
	"github.com/pricewaze/pricewaze-backend/internal/config"
	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
	"github.com/pricewaze/pricewaze-backend/internal/notify"
	"github.com/pricewaze/pricewaze-backend/internal/service"
	"github.com/pricewaze/pricewaze-backend/internal/store/postgres"
)

// Dependencies bundles every constructed dependency the operating modes
// need. It is built by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	SignalEvents domain.SignalEventStore
	SignalStates domain.SignalStateStore
	Properties   domain.PropertyStore
	Zones        domain.ZoneStore
	Visits       domain.VisitStore
	Offers       domain.OfferStore
	Snapshots    domain.SnapshotStore

	// Caches and bus
	StateCache    domain.StateCache
	DynamicsCache domain.DynamicsCache
	PressureCache domain.PressureCache
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Services
	Signals    *service.SignalService
	Aggregator *service.AggregatorService
	Fairness   *service.FairnessService
	Dynamics   *service.DynamicsService
	Pressure   *service.PressureService
	WaitRisk   *service.WaitRiskService
	Snapshot   *service.SnapshotService

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true for modes that run the archive loop.
func needsS3(mode string) bool {
	switch mode {
	case "batch", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration. The returned cleanup function releases resources in reverse
// construction order.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.SignalEvents = postgres.NewSignalEventStore(pool)
	deps.SignalStates = postgres.NewSignalStateStore(pool)
	deps.Properties = postgres.NewPropertyStore(pool)
	deps.Zones = postgres.NewZoneStore(pool)
	deps.Visits = postgres.NewVisitStore(pool)
	deps.Offers = postgres.NewOfferStore(pool)
	deps.Snapshots = postgres.NewSnapshotStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.StateCache = redis.NewStateCache(redisClient)
	deps.DynamicsCache = redis.NewDynamicsCache(redisClient)
	deps.PressureCache = redis.NewPressureCache(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (archive modes only) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.SignalEvents, deps.Snapshots)
	}

	// --- Services ---
	aggCfg := engine.AggregateConfig{
		Window:               cfg.Engine.AggregateWindow(),
		HalfLife:             cfg.Engine.AggregateWindow() / 4,
		ConfirmReporters:     cfg.Engine.ConfirmReporters,
		CompetingOffersMin:   cfg.Engine.CompetingOffersMin,
		ManyVisitsMin:        cfg.Engine.ManyVisitsMin,
		HighActivityStrength: cfg.Engine.HighActivityStrength,
	}
	deps.Aggregator = service.NewAggregatorService(
		aggCfg, cfg.Pipeline.RecomputeConcurrency,
		deps.SignalEvents, deps.SignalStates, deps.Visits, deps.Offers,
		deps.StateCache, deps.SignalBus, deps.LockManager, logger,
	)
	deps.Signals = service.NewSignalService(
		deps.SignalEvents, deps.SignalStates, deps.Visits, deps.Properties,
		deps.StateCache, deps.Aggregator, logger,
	)
	deps.Fairness = service.NewFairnessService(
		engine.FairnessConfig{
			MinComparables: cfg.Engine.FairnessMinComparables,
			RecencyHorizon: time.Duration(cfg.Engine.FairnessRecencyDays) * 24 * time.Hour,
		},
		cfg.Engine.FairnessFallbackZones,
		deps.Properties, deps.Zones, deps.Offers, logger,
	)
	dynCfg := engine.DefaultDynamicsConfig()
	dynCfg.Lookback = time.Duration(cfg.Engine.DynamicsLookbackDays) * 24 * time.Hour
	dynCfg.MinSamples = cfg.Engine.DynamicsMinSamples
	deps.Dynamics = service.NewDynamicsService(dynCfg, deps.Properties, deps.Zones, deps.DynamicsCache, logger)
	deps.Pressure = service.NewPressureService(
		deps.SignalStates, deps.Offers, deps.Visits, deps.Properties,
		deps.PressureCache, logger,
	)
	wrCfg := engine.DefaultWaitRiskConfig()
	wrCfg.Horizons = cfg.Engine.WaitRiskHorizonDays
	wrCfg.ActNowThreshold = cfg.Engine.WaitRiskActNowThreshold
	wrCfg.SafeThreshold = cfg.Engine.WaitRiskSafeThreshold
	deps.WaitRisk = service.NewWaitRiskService(wrCfg, deps.Properties, deps.Pressure, deps.Dynamics, logger)
	deps.Snapshot = service.NewSnapshotService(
		deps.Offers, deps.Properties, deps.Snapshots,
		deps.Pressure, deps.Dynamics, deps.SignalBus, logger,
	)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
