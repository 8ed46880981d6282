package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avelsh/crossarb/internal/domain"
)

// HistogramStore implements domain.HistogramStore on Redis. The live
// checkpoint lives under a single string key; rolled-over windows are kept
// under dated keys with a bounded retention.
//
// Key schema:
//
//	threshold:ranges            - current histogram snapshot (JSON)
//	threshold:ranges:{date}     - archived snapshot for one window
type HistogramStore struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewHistogramStore creates a HistogramStore backed by the given Client.
// Archived windows expire after retention; zero keeps them forever.
func NewHistogramStore(c *Client, retention time.Duration) *HistogramStore {
	return &HistogramStore{rdb: c.Underlying(), retention: retention}
}

const rangesKey = "threshold:ranges"

// Save overwrites the live checkpoint.
func (s *HistogramStore) Save(ctx context.Context, snapshot []byte) error {
	if err := s.rdb.Set(ctx, rangesKey, snapshot, 0).Err(); err != nil {
		return fmt.Errorf("redis: save histogram checkpoint: %w", err)
	}
	return nil
}

// Load returns the live checkpoint, or domain.ErrNotFound when none exists.
func (s *HistogramStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.rdb.Get(ctx, rangesKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: load histogram checkpoint: %w", err)
	}
	return data, nil
}

// Archive stores a rolled-over window under its date key.
func (s *HistogramStore) Archive(ctx context.Context, date string, snapshot []byte) error {
	if err := s.rdb.Set(ctx, rangesKey+":"+date, snapshot, s.retention).Err(); err != nil {
		return fmt.Errorf("redis: archive histogram %s: %w", date, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HistogramStore = (*HistogramStore)(nil)
