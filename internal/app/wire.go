package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	s3blob "github.com/avelsh/crossarb/internal/blob/s3"
	"github.com/avelsh/crossarb/internal/bus/kafka"
	"github.com/avelsh/crossarb/internal/cache/redis"
	"github.com/avelsh/crossarb/internal/config"
	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/notify"
	"github.com/avelsh/crossarb/internal/server/ws"
	"github.com/avelsh/crossarb/internal/store/postgres"
	"github.com/avelsh/crossarb/internal/venue"
)

// archiveRetention bounds how long rolled-over histogram archives live in
// Redis; the S3 copies are the durable record.
const archiveRetention = 30 * 24 * time.Hour

// Dependencies bundles every collaborator the engine needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Venues map[string]venue.Connector

	DealStore  domain.DealStore
	Histograms domain.HistogramStore
	Locks      *redis.LockManager
	Sink       domain.ReportSink
	Notifier   *notify.Notifier
	Hub        *ws.Hub

	// Set when S3 archiving is enabled.
	DealArchiver *s3blob.DealArchiver
	Archive      *s3blob.Reader
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	dealStore := postgres.NewDealStore(pgClient.Pool())
	deps.DealStore = dealStore

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

	deps.Histograms = redis.NewHistogramStore(redisClient, archiveRetention)
	deps.Locks = redis.NewLockManager(redisClient)

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
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

		writer := s3blob.NewWriter(s3Client)
		deps.Histograms = s3blob.NewHistogramArchiver(deps.Histograms, writer)
		deps.DealArchiver = s3blob.NewDealArchiver(dealStore, writer)
		deps.Archive = s3blob.NewReader(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.Console {
		senders = append(senders, notify.NewConsoleSender(os.Stdout))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Report sinks ---
	sinks := multiSink{notify.NewReporter(deps.Notifier)}
	if cfg.Kafka.Enabled {
		kafkaSink := kafka.NewSink(kafka.SinkConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		closers = append(closers, func() { _ = kafkaSink.Close() })
		sinks = append(sinks, kafkaSink)
	}
	if cfg.Server.Enabled {
		deps.Hub = ws.NewHub(logger)
		sinks = append(sinks, deps.Hub)
	}
	deps.Sink = sinks

	// --- Venue connectors ---
	deps.Venues = make(map[string]venue.Connector, len(cfg.Venues))
	for name, vc := range cfg.Venues {
		conn, err := venue.Open(venue.Settings{
			Name:      name,
			WsHost:    vc.WsHost,
			RestHost:  vc.RestHost,
			ApiKey:    vc.ApiKey,
			ApiSecret: vc.ApiSecret,
			TakerFee:  vc.TakerFee,
			MakerFee:  vc.MakerFee,
			Markets:   vc.Markets,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue %s: %w", name, err)
		}
		deps.Venues[name] = conn
	}

	return deps, cleanup, nil
}
