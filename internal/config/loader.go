package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PRICEWAZE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PRICEWAZE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "PRICEWAZE_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "PRICEWAZE_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "PRICEWAZE_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PRICEWAZE_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PRICEWAZE_DATABASE_NAME")
	setStr(&cfg.Database.User, "PRICEWAZE_DATABASE_USER")
	setStr(&cfg.Database.Password, "PRICEWAZE_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PRICEWAZE_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "PRICEWAZE_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PRICEWAZE_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PRICEWAZE_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PRICEWAZE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PRICEWAZE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PRICEWAZE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PRICEWAZE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PRICEWAZE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PRICEWAZE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PRICEWAZE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PRICEWAZE_S3_REGION")
	setStr(&cfg.S3.Bucket, "PRICEWAZE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PRICEWAZE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PRICEWAZE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PRICEWAZE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PRICEWAZE_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setInt(&cfg.Engine.SignalWindowDays, "PRICEWAZE_ENGINE_SIGNAL_WINDOW_DAYS")
	setInt(&cfg.Engine.ConfirmReporters, "PRICEWAZE_ENGINE_CONFIRM_REPORTERS")
	setInt(&cfg.Engine.CompetingOffersMin, "PRICEWAZE_ENGINE_COMPETING_OFFERS_MIN")
	setInt(&cfg.Engine.ManyVisitsMin, "PRICEWAZE_ENGINE_MANY_VISITS_MIN")
	setFloat64(&cfg.Engine.HighActivityStrength, "PRICEWAZE_ENGINE_HIGH_ACTIVITY_STRENGTH")
	setInt(&cfg.Engine.FairnessMinComparables, "PRICEWAZE_ENGINE_FAIRNESS_MIN_COMPARABLES")
	setInt(&cfg.Engine.FairnessRecencyDays, "PRICEWAZE_ENGINE_FAIRNESS_RECENCY_DAYS")
	setInt(&cfg.Engine.FairnessFallbackZones, "PRICEWAZE_ENGINE_FAIRNESS_FALLBACK_ZONES")
	setInt(&cfg.Engine.DynamicsLookbackDays, "PRICEWAZE_ENGINE_DYNAMICS_LOOKBACK_DAYS")
	setInt(&cfg.Engine.DynamicsMinSamples, "PRICEWAZE_ENGINE_DYNAMICS_MIN_SAMPLES")
	setIntSlice(&cfg.Engine.WaitRiskHorizonDays, "PRICEWAZE_ENGINE_WAIT_RISK_HORIZON_DAYS")
	setFloat64(&cfg.Engine.WaitRiskActNowThreshold, "PRICEWAZE_ENGINE_WAIT_RISK_ACT_NOW_THRESHOLD")
	setFloat64(&cfg.Engine.WaitRiskSafeThreshold, "PRICEWAZE_ENGINE_WAIT_RISK_SAFE_THRESHOLD")

	// ── Pipeline ──
	setBool(&cfg.Pipeline.Enabled, "PRICEWAZE_PIPELINE_ENABLED")
	setDuration(&cfg.Pipeline.RecomputeInterval, "PRICEWAZE_PIPELINE_RECOMPUTE_INTERVAL")
	setDuration(&cfg.Pipeline.DetectInterval, "PRICEWAZE_PIPELINE_DETECT_INTERVAL")
	setDuration(&cfg.Pipeline.DynamicsInterval, "PRICEWAZE_PIPELINE_DYNAMICS_INTERVAL")
	setInt(&cfg.Pipeline.RecomputeConcurrency, "PRICEWAZE_PIPELINE_RECOMPUTE_CONCURRENCY")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "PRICEWAZE_PIPELINE_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Pipeline.ArchiveInterval, "PRICEWAZE_PIPELINE_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PRICEWAZE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PRICEWAZE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PRICEWAZE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PRICEWAZE_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PRICEWAZE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PRICEWAZE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PRICEWAZE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PRICEWAZE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PRICEWAZE_MODE")
	setStr(&cfg.LogLevel, "PRICEWAZE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setIntSlice(dst *[]int, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		parsed := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return
			}
			parsed = append(parsed, n)
		}
		if len(parsed) > 0 {
			*dst = parsed
		}
	}
}
