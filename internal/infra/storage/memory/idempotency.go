package memory

import (
	"context"
	"sync"
	"time"

	"venuebook/internal/app/middleware"
)

// IdempotencyStore keeps replayable results in memory for TTL.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]middleware.IdempotencyRecord
	ttl   time.Duration
	now   func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		items: make(map[string]middleware.IdempotencyRecord),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	rec, ok := s.items[key]
	s.mu.RUnlock()
	if ok && s.expired(rec) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, ok, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = s.now().UTC()
	}
	s.items[rec.Key] = rec
	return nil
}

func (s *IdempotencyStore) expired(rec middleware.IdempotencyRecord) bool {
	return s.ttl > 0 && s.now().Sub(rec.OccurredAt) > s.ttl
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
