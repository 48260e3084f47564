package claim

import (
	"context"
	"sync"
	"time"
)

// InMemoryConsumedStore backs unit tests and single-node development.
type InMemoryConsumedStore struct {
	mu       sync.RWMutex
	consumed map[string]time.Time
}

func NewInMemoryConsumedStore() *InMemoryConsumedStore {
	return &InMemoryConsumedStore{consumed: make(map[string]time.Time)}
}

func (s *InMemoryConsumedStore) MarkConsumed(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed[jti] = time.Now().Add(ttl)
	return nil
}

func (s *InMemoryConsumedStore) IsConsumed(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiry, ok := s.consumed[jti]
	return ok && time.Now().Before(expiry), nil
}
