package orchestrator

import (
	"sync"
	"time"

	"github.com/avelsh/crossarb/internal/domain"
)

// quoteStore tracks the resting maker quote per instrument. One quote per
// coin: the maker venue runs a single two-sided book position at a time.
type quoteStore struct {
	mu     sync.RWMutex
	quotes map[string]domain.ActiveQuote
}

func newQuoteStore() *quoteStore {
	return &quoteStore{quotes: make(map[string]domain.ActiveQuote)}
}

func (s *quoteStore) Get(coin string) (domain.ActiveQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[coin]
	return q, ok
}

func (s *quoteStore) Set(q domain.ActiveQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.UpdatedAt = time.Now().UTC()
	s.quotes[q.Coin] = q
}

// Touch refreshes the quote's last-update marker without changing it.
func (s *quoteStore) Touch(coin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.quotes[coin]; ok {
		q.UpdatedAt = time.Now().UTC()
		s.quotes[coin] = q
	}
}

func (s *quoteStore) Clear(coin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, coin)
}

// ByOrderID finds the tracked quote carrying the exchange order id.
func (s *quoteStore) ByOrderID(orderID string) (domain.ActiveQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quotes {
		if q.OrderID == orderID {
			return q, true
		}
	}
	return domain.ActiveQuote{}, false
}

func (s *quoteStore) All() []domain.ActiveQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ActiveQuote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q)
	}
	return out
}
