package orchestrator

import "sync"

// inflightStore is the per-key mutual exclusion gate for order operations.
// A key is held from the moment an operation is dispatched until its venue
// response (or timeout fallback) fully resolved.
type inflightStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflightStore() *inflightStore {
	return &inflightStore{keys: make(map[string]struct{})}
}

// TryAcquire claims key, returning false if it is already held.
func (s *inflightStore) TryAcquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.keys[key]; held {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *inflightStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

func (s *inflightStore) Held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.keys[key]
	return held
}
