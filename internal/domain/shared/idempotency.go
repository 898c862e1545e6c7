package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys of work that has already been applied,
// such as webhook deliveries a vendor retried.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key so a failed apply can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL bounds how long a delivery key is remembered
const DefaultIdempotencyTTL = 72 * time.Hour
