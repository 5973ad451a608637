// internal/idempotency/store.go
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Response is a recorded HTTP response. A record with InFlight set marks a
// key whose first request is still being served.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	InFlight    bool   `json:"in_flight,omitempty"`
}

// Store keeps responses by idempotency key.
type Store interface {
	Get(ctx context.Context, key string) (*Response, bool, error)
	// Claim marks key as in flight. It reports false when key already holds
	// a marker or a response.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Save replaces the marker with the recorded response.
	Save(ctx context.Context, key string, resp *Response, ttl time.Duration) error
	// Release drops the marker so the request can be retried.
	Release(ctx context.Context, key string) error
}

// RedisStore keeps responses in Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "idempotency:"}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Response, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &resp, true, nil
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(&Response{InFlight: true})
	if err != nil {
		return false, fmt.Errorf("failed to encode idempotency marker: %w", err)
	}
	claimed, err := s.client.SetNX(ctx, s.prefix+key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return claimed, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, resp *Response, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
