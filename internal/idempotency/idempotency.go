// Package idempotency dedupes mutating requests by client-supplied key,
// backed by redis SET NX with a TTL.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(method, path, idempotencyKey string) string {
	return fmt.Sprintf("idem:%s:%s:%s", method, path, idempotencyKey)
}

// Seen records the key and reports whether it had already been recorded
// within the TTL window.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Release frees a key recorded by Seen, so a failed request does not
// block the client's corrected retry.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
