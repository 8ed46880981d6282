package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
coins = ["BTC", "ETH", "SOL"]
log_level = "debug"

[scanner]
maker_venue = "MAKER"
max_book_age = "3s"
max_book_lag = "250ms"

[threshold]
profit_open = 0.0025
window = "12h"

[quoting]
enabled = true
aggregation = "low"

[venues.MAKER]
ws_host = "wss://maker.example.com/ws"
rest_host = "https://maker.example.com"
taker_fee = 0.001
maker_fee = 0.0002
[venues.MAKER.markets]
BTC = "BTC-USD"
ETH = "ETH-USD"

[venues.HEDGE]
ws_host = "wss://hedge.example.com/ws"
rest_host = "https://hedge.example.com"
taker_fee = 0.0008
[venues.HEDGE.markets]
BTC = "BTCUSDT"
ETH = "ETHUSDT"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, cfg.Coins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "MAKER", cfg.Scanner.MakerVenue)
	assert.Equal(t, 3*time.Second, cfg.Scanner.MaxBookAge.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.Scanner.MaxBookLag.Duration)
	assert.Equal(t, 0.0025, cfg.Threshold.ProfitOpen)
	assert.Equal(t, 12*time.Hour, cfg.Threshold.Window.Duration)
	assert.Equal(t, "low", cfg.Quoting.Aggregation)

	require.Contains(t, cfg.Venues, "MAKER")
	assert.Equal(t, "BTC-USD", cfg.Venues["MAKER"].Markets["BTC"])
	assert.Equal(t, 0.0002, cfg.Venues["MAKER"].MakerFee)

	// Untouched sections keep their defaults.
	assert.Equal(t, 0.0005, cfg.Threshold.ProfitClose)
	assert.Equal(t, 4, cfg.Threshold.Precision)
	assert.Equal(t, 200*time.Millisecond, cfg.Execution.ResponseTimeout.Duration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CROSSARB_LOG_LEVEL", "warn")
	t.Setenv("CROSSARB_COINS", "BTC, DOGE")
	t.Setenv("CROSSARB_THRESHOLD_PROFIT_OPEN", "0.004")
	t.Setenv("CROSSARB_THRESHOLD_WINDOW", "6h")
	t.Setenv("CROSSARB_QUOTING_ENABLED", "false")
	t.Setenv("CROSSARB_POSTGRES_PASSWORD", "sekret")
	t.Setenv("CROSSARB_KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("CROSSARB_VENUE_MAKER_API_KEY", "key-from-env")
	t.Setenv("CROSSARB_VENUE_MAKER_API_SECRET", "secret-from-env")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"BTC", "DOGE"}, cfg.Coins)
	assert.Equal(t, 0.004, cfg.Threshold.ProfitOpen)
	assert.Equal(t, 6*time.Hour, cfg.Threshold.Window.Duration)
	assert.False(t, cfg.Quoting.Enabled)
	assert.Equal(t, "sekret", cfg.Postgres.Password)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "key-from-env", cfg.Venues["MAKER"].ApiKey)
	assert.Equal(t, "secret-from-env", cfg.Venues["MAKER"].ApiSecret)
}

func TestEnvOverrideIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CROSSARB_THRESHOLD_PROFIT_OPEN", "not-a-number")
	t.Setenv("CROSSARB_THRESHOLD_WINDOW", "soon")
	t.Setenv("CROSSARB_QUOTING_ENABLED", "maybe")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, 0.0025, cfg.Threshold.ProfitOpen)
	assert.Equal(t, 12*time.Hour, cfg.Threshold.Window.Duration)
	assert.True(t, cfg.Quoting.Enabled)
}

func TestValidateAcceptsSample(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidateDefaultsNeedVenues(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two venues")
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleTOML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantMsg: `unknown log_level "verbose"`,
		},
		{
			name:    "no coins",
			mutate:  func(c *Config) { c.Coins = nil },
			wantMsg: "at least one instrument",
		},
		{
			name: "negative fee",
			mutate: func(c *Config) {
				v := c.Venues["HEDGE"]
				v.TakerFee = -0.001
				c.Venues["HEDGE"] = v
			},
			wantMsg: "venues.HEDGE: fees must not be negative",
		},
		{
			name: "empty markets",
			mutate: func(c *Config) {
				v := c.Venues["HEDGE"]
				v.Markets = nil
				c.Venues["HEDGE"] = v
			},
			wantMsg: "venues.HEDGE: markets map must not be empty",
		},
		{
			name:    "maker venue not configured",
			mutate:  func(c *Config) { c.Scanner.MakerVenue = "GHOST" },
			wantMsg: `maker_venue "GHOST" is not a configured venue`,
		},
		{
			name:    "zero book age",
			mutate:  func(c *Config) { c.Scanner.MaxBookAge = duration{} },
			wantMsg: "max_book_age must be > 0",
		},
		{
			name:    "zero open profit",
			mutate:  func(c *Config) { c.Threshold.ProfitOpen = 0 },
			wantMsg: "profit_open must be > 0",
		},
		{
			name:    "precision out of range",
			mutate:  func(c *Config) { c.Threshold.Precision = 12 },
			wantMsg: "precision must be 1-8",
		},
		{
			name:    "bad aggregation",
			mutate:  func(c *Config) { c.Quoting.Aggregation = "median" },
			wantMsg: `unknown aggregation "median"`,
		},
		{
			name:    "haircut too large",
			mutate:  func(c *Config) { c.Execution.Haircut = 1.5 },
			wantMsg: "haircut must be in [0, 1)",
		},
		{
			name: "max below min deal",
			mutate: func(c *Config) {
				c.Execution.MinDealUSD = 500
				c.Execution.MaxDealUSD = 100
			},
			wantMsg: "max_deal_usd must not be below min_deal_usd",
		},
		{
			name: "postgres host required without dsn",
			mutate: func(c *Config) {
				c.Postgres.DSN = ""
				c.Postgres.Host = ""
			},
			wantMsg: "postgres: host must not be empty",
		},
		{
			name:    "redis addr required",
			mutate:  func(c *Config) { c.Redis.Addr = "" },
			wantMsg: "redis: addr must not be empty",
		},
		{
			name: "kafka topic required when enabled",
			mutate: func(c *Config) {
				c.Kafka.Enabled = true
				c.Kafka.Topic = ""
			},
			wantMsg: "kafka: topic must not be empty",
		},
		{
			name: "s3 bucket required when enabled",
			mutate: func(c *Config) {
				c.S3.Enabled = true
				c.S3.Bucket = ""
			},
			wantMsg: "s3: bucket must not be empty",
		},
		{
			name:    "server port range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantMsg: "server: port must be 1-65535",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	cfg.LogLevel = "loud"
	cfg.Coins = nil
	cfg.Redis.Addr = ""

	verr := cfg.Validate()
	require.Error(t, verr)
	assert.Contains(t, verr.Error(), "log_level")
	assert.Contains(t, verr.Error(), "instrument")
	assert.Contains(t, verr.Error(), "redis")
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	v := cfg.Venues["MAKER"]
	v.ApiKey = "key"
	v.ApiSecret = "secret"
	cfg.Venues["MAKER"] = v
	cfg.Postgres.Password = "pgpass"
	cfg.Notify.TelegramToken = "tg-token"

	red := Redacted(cfg)

	assert.Equal(t, "***", red.Venues["MAKER"].ApiKey)
	assert.Equal(t, "***", red.Venues["MAKER"].ApiSecret)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Non-secret fields survive, empty secrets stay empty.
	assert.Equal(t, "BTC-USD", red.Venues["MAKER"].Markets["BTC"])
	assert.Empty(t, red.Redis.Password)

	// The copy is detached from the original.
	red.Coins[0] = "XXX"
	assert.Equal(t, "BTC", cfg.Coins[0])
	assert.Equal(t, "key", cfg.Venues["MAKER"].ApiKey)
}

func TestDurationRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("eventually")))
}
