package ratelimit

import (
	"context"
	"sync"

	"github.com/otp-auth-api/internal/domain"
)

// MemoryStore is a mutex-guarded in-process Store. Sufficient for a
// single-instance deployment; state does not survive restarts and is not
// shared across instances. No sweeper: the Limiter expires records lazily.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]domain.RateLimitRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.RateLimitRecord)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*domain.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	// Copy out so callers can't mutate shared state without an Upsert.
	return &rec, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec *domain.RateLimitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = *rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Len reports the number of live records, used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
