// Package config defines the top-level configuration for the pricewaze
// decision engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PRICEWAZE_* environment variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Engine   EngineConfig   `toml:"engine"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds the scoring parameters: the signal aggregation window
// and confirmation thresholds, fairness pool requirements, dynamics lookback
// and wait-risk bands.
type EngineConfig struct {
	SignalWindowDays     int     `toml:"signal_window_days"`
	ConfirmReporters     int     `toml:"confirm_reporters"`
	CompetingOffersMin   int     `toml:"competing_offers_min"`
	ManyVisitsMin        int     `toml:"many_visits_min"`
	HighActivityStrength float64 `toml:"high_activity_strength"`

	FairnessMinComparables int `toml:"fairness_min_comparables"`
	FairnessRecencyDays    int `toml:"fairness_recency_days"`
	// FairnessFallbackZones is how many neighbouring zones the comparable
	// pool widens to when the subject zone is too sparse.
	FairnessFallbackZones int `toml:"fairness_fallback_zones"`

	DynamicsLookbackDays int `toml:"dynamics_lookback_days"`
	DynamicsMinSamples   int `toml:"dynamics_min_samples"`

	WaitRiskHorizonDays     []int   `toml:"wait_risk_horizon_days"`
	WaitRiskActNowThreshold float64 `toml:"wait_risk_act_now_threshold"`
	WaitRiskSafeThreshold   float64 `toml:"wait_risk_safe_threshold"`
}

// PipelineConfig holds the background job parameters: recompute and detector
// cadence plus archive retention.
type PipelineConfig struct {
	Enabled              bool     `toml:"enabled"`
	RecomputeInterval    duration `toml:"recompute_interval"`
	DetectInterval       duration `toml:"detect_interval"`
	DynamicsInterval     duration `toml:"dynamics_interval"`
	RecomputeConcurrency int      `toml:"recompute_concurrency"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	ArchiveInterval      duration `toml:"archive_interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pricewaze",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "pricewaze-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Engine: EngineConfig{
			SignalWindowDays:        30,
			ConfirmReporters:        3,
			CompetingOffersMin:      2,
			ManyVisitsMin:           5,
			HighActivityStrength:    3.0,
			FairnessMinComparables:  5,
			FairnessRecencyDays:     180,
			FairnessFallbackZones:   3,
			DynamicsLookbackDays:    90,
			DynamicsMinSamples:      5,
			WaitRiskHorizonDays:     []int{7, 30},
			WaitRiskActNowThreshold: 0.45,
			WaitRiskSafeThreshold:   0.15,
		},
		Pipeline: PipelineConfig{
			Enabled:              true,
			RecomputeInterval:    duration{15 * time.Minute},
			DetectInterval:       duration{30 * time.Minute},
			DynamicsInterval:     duration{6 * time.Hour},
			RecomputeConcurrency: 8,
			ArchiveRetentionDays: 180,
			ArchiveInterval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"signal_confirmed", "signal_unconfirmed", "negotiation_alert", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"batch":  true,
	"detect": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, batch, detect, full)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Engine
	if c.Engine.SignalWindowDays < 1 {
		errs = append(errs, "engine: signal_window_days must be >= 1")
	}
	if c.Engine.ConfirmReporters < 1 {
		errs = append(errs, "engine: confirm_reporters must be >= 1")
	}
	if c.Engine.CompetingOffersMin < 1 {
		errs = append(errs, "engine: competing_offers_min must be >= 1")
	}
	if c.Engine.ManyVisitsMin < 1 {
		errs = append(errs, "engine: many_visits_min must be >= 1")
	}
	if c.Engine.HighActivityStrength <= 0 {
		errs = append(errs, "engine: high_activity_strength must be > 0")
	}
	if c.Engine.FairnessMinComparables < 1 {
		errs = append(errs, "engine: fairness_min_comparables must be >= 1")
	}
	if c.Engine.DynamicsLookbackDays < 1 {
		errs = append(errs, "engine: dynamics_lookback_days must be >= 1")
	}
	if len(c.Engine.WaitRiskHorizonDays) == 0 {
		errs = append(errs, "engine: wait_risk_horizon_days must not be empty")
	}
	for i := 1; i < len(c.Engine.WaitRiskHorizonDays); i++ {
		if c.Engine.WaitRiskHorizonDays[i] <= c.Engine.WaitRiskHorizonDays[i-1] {
			errs = append(errs, "engine: wait_risk_horizon_days must be strictly ascending")
			break
		}
	}
	if c.Engine.WaitRiskActNowThreshold <= c.Engine.WaitRiskSafeThreshold {
		errs = append(errs, "engine: wait_risk_act_now_threshold must exceed wait_risk_safe_threshold")
	}

	// Pipeline
	if c.Pipeline.Enabled {
		if c.Pipeline.RecomputeInterval.Duration <= 0 {
			errs = append(errs, "pipeline: recompute_interval must be > 0 when enabled")
		}
		if c.Pipeline.DetectInterval.Duration <= 0 {
			errs = append(errs, "pipeline: detect_interval must be > 0 when enabled")
		}
		if c.Pipeline.RecomputeConcurrency < 1 {
			errs = append(errs, "pipeline: recompute_concurrency must be >= 1")
		}
		if c.Pipeline.ArchiveRetentionDays < 1 {
			errs = append(errs, "pipeline: archive_retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// AggregateWindow returns the signal window as a duration.
func (e EngineConfig) AggregateWindow() time.Duration {
	return time.Duration(e.SignalWindowDays) * 24 * time.Hour
}
