package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"venuebook/internal/app/middleware"
)

const keyPrefix = "venuebook:idem:"

// IdempotencyStore keeps replayable command results in redis with a TTL.
type IdempotencyStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewIdempotencyStore(client *goredis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

type storedResult struct {
	Payload    []byte    `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	var stored storedResult
	if err := json.Unmarshal(raw, &stored); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: key, Payload: stored.Payload, OccurredAt: stored.OccurredAt}, true, nil
}

// Save keeps the first result stored for a key.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(storedResult{Payload: rec.Payload, OccurredAt: rec.OccurredAt})
	if err != nil {
		return err
	}
	return s.client.SetNX(ctx, keyPrefix+rec.Key, raw, s.ttl).Err()
}

func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
