// Package config defines the top-level configuration for the crossarb engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Coins     []string               `toml:"coins"`
	Venues    map[string]VenueConfig `toml:"venues"`
	Scanner   ScannerConfig          `toml:"scanner"`
	Threshold ThresholdConfig        `toml:"threshold"`
	Quoting   QuotingConfig          `toml:"quoting"`
	Execution ExecutionConfig        `toml:"execution"`
	Postgres  PostgresConfig         `toml:"postgres"`
	Redis     RedisConfig            `toml:"redis"`
	Kafka     KafkaConfig            `toml:"kafka"`
	S3        S3Config               `toml:"s3"`
	Server    ServerConfig           `toml:"server"`
	Notify    NotifyConfig           `toml:"notify"`
	LogLevel  string                 `toml:"log_level"`
}

// VenueConfig holds one exchange connector's endpoints and credentials. The
// map key in Config.Venues is the venue name, e.g. "BINANCE".
type VenueConfig struct {
	WsHost    string            `toml:"ws_host"`
	RestHost  string            `toml:"rest_host"`
	ApiKey    string            `toml:"api_key"`
	ApiSecret string            `toml:"api_secret"`
	TakerFee  float64           `toml:"taker_fee"`
	MakerFee  float64           `toml:"maker_fee"`
	Markets   map[string]string `toml:"markets"` // coin -> venue market id
}

// ScannerConfig bounds book freshness for opportunity detection.
type ScannerConfig struct {
	MakerVenue     string   `toml:"maker_venue"`
	MaxBookAge     duration `toml:"max_book_age"`
	MaxBookLag     duration `toml:"max_book_lag"`
	TriggersPerSec float64  `toml:"triggers_per_sec"` // per-coin trigger throttle
}

// ThresholdConfig tunes the adaptive profit-threshold tracker.
type ThresholdConfig struct {
	ProfitOpen      float64  `toml:"profit_open"`
	ProfitClose     float64  `toml:"profit_close"`
	Precision       int      `toml:"precision"`
	Window          duration `toml:"window"`
	CheckpointEvery duration `toml:"checkpoint_every"`
	BalanceFloor    int      `toml:"balance_floor"`
}

// QuotingConfig tunes the maker quote reconciler.
type QuotingConfig struct {
	Enabled     bool    `toml:"enabled"`
	Depth       int     `toml:"depth"`       // opposing book reference depth index
	Aggregation string  `toml:"aggregation"` // "middle" or "low"
	MinOrderUSD float64 `toml:"min_order_usd"`
}

// ExecutionConfig tunes admission, sizing and order lifecycle handling.
type ExecutionConfig struct {
	ResponseTimeout duration `toml:"response_timeout"`
	Haircut         float64  `toml:"haircut"`
	Slippage        float64  `toml:"slippage"`
	MinDealUSD      float64  `toml:"min_deal_usd"`
	MaxDealUSD      float64  `toml:"max_deal_usd"`
	SettlementPause duration `toml:"settlement_pause"`
	BalanceRefresh  duration `toml:"balance_refresh"`
	SweepInterval   duration `toml:"sweep_interval"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// KafkaConfig holds the report-stream broker parameters.
type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// S3Config holds S3-compatible object storage parameters for archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the ops HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Console        bool     `toml:"console"`
	Events         []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "200ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "200ms".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Coins:  []string{"BTC", "ETH"},
		Venues: map[string]VenueConfig{},
		Scanner: ScannerConfig{
			MaxBookAge:     duration{2 * time.Second},
			MaxBookLag:     duration{500 * time.Millisecond},
			TriggersPerSec: 20,
		},
		Threshold: ThresholdConfig{
			ProfitOpen:      0.002,
			ProfitClose:     0.0005,
			Precision:       4,
			Window:          duration{24 * time.Hour},
			CheckpointEvery: duration{time.Hour},
			BalanceFloor:    100,
		},
		Quoting: QuotingConfig{
			Enabled:     true,
			Depth:       2,
			Aggregation: "middle",
			MinOrderUSD: 100,
		},
		Execution: ExecutionConfig{
			ResponseTimeout: duration{200 * time.Millisecond},
			Haircut:         0.02,
			Slippage:        0.001,
			MinDealUSD:      10,
			MaxDealUSD:      1000,
			SettlementPause: duration{5 * time.Second},
			BalanceRefresh:  duration{time.Minute},
			SweepInterval:   duration{30 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "crossarb",
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
		},
		Kafka: KafkaConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "crossarb.reports",
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossarb-data",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Console: true,
			// Empty subscribes every channel to all events, alerts included.
			Events: nil,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validAggregations = map[string]bool{
	"middle": true,
	"low":    true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Coins) == 0 {
		errs = append(errs, "coins: at least one instrument must be configured")
	}
	if len(c.Venues) < 2 {
		errs = append(errs, "venues: at least two venues must be configured")
	}
	for name, v := range c.Venues {
		if v.TakerFee < 0 || v.MakerFee < 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: fees must not be negative", name))
		}
		if len(v.Markets) == 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: markets map must not be empty", name))
		}
	}

	if c.Quoting.Enabled || c.Scanner.MakerVenue != "" {
		if _, ok := c.Venues[c.Scanner.MakerVenue]; !ok {
			errs = append(errs, fmt.Sprintf("scanner: maker_venue %q is not a configured venue", c.Scanner.MakerVenue))
		}
	}
	if c.Scanner.MaxBookAge.Duration <= 0 {
		errs = append(errs, "scanner: max_book_age must be > 0")
	}

	if c.Threshold.ProfitOpen <= 0 {
		errs = append(errs, "threshold: profit_open must be > 0")
	}
	if c.Threshold.Precision < 1 || c.Threshold.Precision > 8 {
		errs = append(errs, fmt.Sprintf("threshold: precision must be 1-8, got %d", c.Threshold.Precision))
	}
	if c.Threshold.Window.Duration <= 0 {
		errs = append(errs, "threshold: window must be > 0")
	}

	if c.Quoting.Enabled {
		if c.Quoting.Depth < 0 {
			errs = append(errs, "quoting: depth must be >= 0")
		}
		if !validAggregations[c.Quoting.Aggregation] {
			errs = append(errs, fmt.Sprintf("quoting: unknown aggregation %q (valid: middle, low)", c.Quoting.Aggregation))
		}
	}

	if c.Execution.ResponseTimeout.Duration <= 0 {
		errs = append(errs, "execution: response_timeout must be > 0")
	}
	if c.Execution.Haircut < 0 || c.Execution.Haircut >= 1 {
		errs = append(errs, fmt.Sprintf("execution: haircut must be in [0, 1), got %g", c.Execution.Haircut))
	}
	if c.Execution.MinDealUSD <= 0 {
		errs = append(errs, "execution: min_deal_usd must be > 0")
	}
	if c.Execution.MaxDealUSD > 0 && c.Execution.MaxDealUSD < c.Execution.MinDealUSD {
		errs = append(errs, "execution: max_deal_usd must not be below min_deal_usd")
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka: brokers must not be empty when enabled")
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, "kafka: topic must not be empty when enabled")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

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
