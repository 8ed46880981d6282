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
// built-in defaults, applies CROSSARB_* environment variable overrides, and
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

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file. Per-venue credentials use CROSSARB_VENUE_<NAME>_API_KEY and
// CROSSARB_VENUE_<NAME>_API_SECRET.
func applyEnvOverrides(cfg *Config) {
	// ── Venues ──
	for name, v := range cfg.Venues {
		prefix := "CROSSARB_VENUE_" + strings.ToUpper(name) + "_"
		setStr(&v.ApiKey, prefix+"API_KEY")
		setStr(&v.ApiSecret, prefix+"API_SECRET")
		setStr(&v.WsHost, prefix+"WS_HOST")
		setStr(&v.RestHost, prefix+"REST_HOST")
		cfg.Venues[name] = v
	}

	// ── Scanner ──
	setStr(&cfg.Scanner.MakerVenue, "CROSSARB_SCANNER_MAKER_VENUE")
	setDuration(&cfg.Scanner.MaxBookAge, "CROSSARB_SCANNER_MAX_BOOK_AGE")
	setDuration(&cfg.Scanner.MaxBookLag, "CROSSARB_SCANNER_MAX_BOOK_LAG")
	setFloat64(&cfg.Scanner.TriggersPerSec, "CROSSARB_SCANNER_TRIGGERS_PER_SEC")

	// ── Threshold ──
	setFloat64(&cfg.Threshold.ProfitOpen, "CROSSARB_THRESHOLD_PROFIT_OPEN")
	setFloat64(&cfg.Threshold.ProfitClose, "CROSSARB_THRESHOLD_PROFIT_CLOSE")
	setInt(&cfg.Threshold.Precision, "CROSSARB_THRESHOLD_PRECISION")
	setDuration(&cfg.Threshold.Window, "CROSSARB_THRESHOLD_WINDOW")
	setDuration(&cfg.Threshold.CheckpointEvery, "CROSSARB_THRESHOLD_CHECKPOINT_EVERY")
	setInt(&cfg.Threshold.BalanceFloor, "CROSSARB_THRESHOLD_BALANCE_FLOOR")

	// ── Quoting ──
	setBool(&cfg.Quoting.Enabled, "CROSSARB_QUOTING_ENABLED")
	setInt(&cfg.Quoting.Depth, "CROSSARB_QUOTING_DEPTH")
	setStr(&cfg.Quoting.Aggregation, "CROSSARB_QUOTING_AGGREGATION")
	setFloat64(&cfg.Quoting.MinOrderUSD, "CROSSARB_QUOTING_MIN_ORDER_USD")

	// ── Execution ──
	setDuration(&cfg.Execution.ResponseTimeout, "CROSSARB_EXECUTION_RESPONSE_TIMEOUT")
	setFloat64(&cfg.Execution.Haircut, "CROSSARB_EXECUTION_HAIRCUT")
	setFloat64(&cfg.Execution.Slippage, "CROSSARB_EXECUTION_SLIPPAGE")
	setFloat64(&cfg.Execution.MinDealUSD, "CROSSARB_EXECUTION_MIN_DEAL_USD")
	setFloat64(&cfg.Execution.MaxDealUSD, "CROSSARB_EXECUTION_MAX_DEAL_USD")
	setDuration(&cfg.Execution.SettlementPause, "CROSSARB_EXECUTION_SETTLEMENT_PAUSE")
	setDuration(&cfg.Execution.BalanceRefresh, "CROSSARB_EXECUTION_BALANCE_REFRESH")
	setDuration(&cfg.Execution.SweepInterval, "CROSSARB_EXECUTION_SWEEP_INTERVAL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CROSSARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CROSSARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROSSARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROSSARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROSSARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROSSARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROSSARB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CROSSARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CROSSARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CROSSARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")

	// ── Kafka ──
	setBool(&cfg.Kafka.Enabled, "CROSSARB_KAFKA_ENABLED")
	setStringSlice(&cfg.Kafka.Brokers, "CROSSARB_KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "CROSSARB_KAFKA_TOPIC")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CROSSARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CROSSARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROSSARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CROSSARB_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CROSSARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CROSSARB_SERVER_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROSSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setBool(&cfg.Notify.Console, "CROSSARB_NOTIFY_CONSOLE")
	setStringSlice(&cfg.Notify.Events, "CROSSARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
	setStringSlice(&cfg.Coins, "CROSSARB_COINS")
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
