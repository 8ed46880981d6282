// Package kafka publishes deal, hedge and alert reports to a Kafka topic so
// downstream analytics can consume the engine's decision stream.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avelsh/crossarb/internal/domain"
)

// SinkConfig holds the producer parameters.
type SinkConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// envelope wraps every published record with its kind so consumers can
// demultiplex a single topic.
type envelope struct {
	Kind    string `json:"kind"` // "deal", "hedge", "alert"
	Payload any    `json:"payload"`
}

// Sink implements domain.ReportSink on a kafka-go Writer.
type Sink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewSink creates a Sink. The writer is lazy; connectivity errors surface on
// first publish.
func NewSink(cfg SinkConfig, logger *slog.Logger) *Sink {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = time.Second
	}
	return &Sink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.CRC32Balancer{},
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: cfg.WriteTimeout,
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
		},
		logger: logger.With(slog.String("component", "kafka_sink")),
	}
}

// PublishDeal publishes a deal report keyed by coin.
func (s *Sink) PublishDeal(ctx context.Context, r domain.DealReport) error {
	return s.publish(ctx, r.Coin, envelope{Kind: "deal", Payload: r})
}

// PublishHedge publishes a hedge report keyed by coin.
func (s *Sink) PublishHedge(ctx context.Context, r domain.HedgeReport) error {
	return s.publish(ctx, r.Coin, envelope{Kind: "hedge", Payload: r})
}

// PublishAlert publishes an alert keyed by event name.
func (s *Sink) PublishAlert(ctx context.Context, a domain.Alert) error {
	return s.publish(ctx, a.Event, envelope{Kind: "alert", Payload: a})
}

func (s *Sink) publish(ctx context.Context, key string, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", env.Kind, err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka: publish %s: %w", env.Kind, err)
	}
	s.logger.Debug("report published",
		slog.String("kind", env.Kind),
		slog.String("key", key))
	return nil
}

// Close flushes and closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

// Compile-time interface check.
var _ domain.ReportSink = (*Sink)(nil)
