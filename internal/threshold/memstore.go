package threshold

import (
	"context"
	"sync"

	"github.com/avelsh/crossarb/internal/domain"
)

// MemoryStore is an in-process HistogramStore for runs without Redis and for
// tests. Archives are kept forever; callers that care about retention should
// use the Redis store.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot []byte
	archives map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{archives: make(map[string][]byte)}
}

// Save replaces the current checkpoint.
func (s *MemoryStore) Save(_ context.Context, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = append([]byte(nil), snapshot...)
	return nil
}

// Load returns the current checkpoint, or ErrNotFound when none was saved.
func (s *MemoryStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), s.snapshot...), nil
}

// Archive stores a rolled-over window under its date.
func (s *MemoryStore) Archive(_ context.Context, date string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[date] = append([]byte(nil), snapshot...)
	return nil
}

// Archived returns the archive stored under date.
func (s *MemoryStore) Archived(date string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.archives[date]
	return b, ok
}

var _ domain.HistogramStore = (*MemoryStore)(nil)
