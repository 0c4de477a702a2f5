package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idem:"
	pending   = "pending"
)

// RedisStore keeps responses in Redis. Reservations use SET NX so only one
// request wins a key across all server processes.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Lookup implements Store.
func (s *RedisStore) Lookup(ctx context.Context, key string) (Response, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	if string(raw) == pending {
		return Response{}, false, nil
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return resp, true, nil
}

// Reserve implements Store.
func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pending, ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve %s: %w", key, err)
	}
	if !ok {
		return ErrInFlight
	}
	return nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
