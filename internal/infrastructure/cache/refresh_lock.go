package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/accounting"
)

const refreshLockPrefix = "storeops:oauth:refresh-lock:"

// releaseScript deletes the lock only if it is still held by the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisRefreshLock is a SET NX PX lock shared across replicas
type RedisRefreshLock struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisRefreshLock creates a distributed refresh lock
func NewRedisRefreshLock(client redis.UniversalClient, logger *zap.Logger) *RedisRefreshLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRefreshLock{client: client, logger: logger}
}

// Acquire takes the lock for backend. The returned release is safe to call
// after the TTL has expired.
func (l *RedisRefreshLock) Acquire(ctx context.Context, backend string, ttl time.Duration) (func(), bool, error) {
	key := refreshLockPrefix + backend
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The caller's context may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release refresh lock", zap.String("backend", backend), zap.Error(err))
		}
	}
	return release, true, nil
}

var _ accounting.RefreshLock = (*RedisRefreshLock)(nil)

// LocalRefreshLock is the single-instance RefreshLock
type LocalRefreshLock struct {
	ttlMap
}

// NewLocalRefreshLock creates an in-process refresh lock
func NewLocalRefreshLock() *LocalRefreshLock {
	return &LocalRefreshLock{ttlMap: newTTLMap()}
}

// Acquire takes the lock for backend
func (l *LocalRefreshLock) Acquire(ctx context.Context, backend string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	if !l.setNX(backend, token, ttl) {
		return nil, false, nil
	}
	return func() { l.delIf(backend, token) }, true, nil
}

var _ accounting.RefreshLock = (*LocalRefreshLock)(nil)
