package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storeops/backend/internal/domain/accounting"
)

const statePrefix = "storeops:oauth:state:"

// RedisStateStore keeps OAuth authorization state in Redis with a TTL
type RedisStateStore struct {
	client redis.UniversalClient
}

// NewRedisStateStore constructs a Redis-backed state store
func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Save binds state to backend until ttl elapses
func (s *RedisStateStore) Save(ctx context.Context, state, backend string, ttl time.Duration) error {
	if err := s.client.Set(ctx, statePrefix+state, backend, ttl).Err(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the state
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, bool, error) {
	backend, err := s.client.GetDel(ctx, statePrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load state: %w", err)
	}
	return backend, true, nil
}

var _ accounting.StateStore = (*RedisStateStore)(nil)

// InMemoryStateStore is the single-instance StateStore
type InMemoryStateStore struct {
	ttlMap
}

// NewInMemoryStateStore creates an empty in-memory state store
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{ttlMap: newTTLMap()}
}

// Save binds state to backend until ttl elapses
func (s *InMemoryStateStore) Save(ctx context.Context, state, backend string, ttl time.Duration) error {
	s.evictExpired()
	s.set(state, backend, ttl)
	return nil
}

// Consume reads and deletes the state
func (s *InMemoryStateStore) Consume(ctx context.Context, state string) (string, bool, error) {
	backend, ok := s.take(state)
	return backend, ok, nil
}

var _ accounting.StateStore = (*InMemoryStateStore)(nil)
