// Package cache stores indexer responses for a bounded time.
package cache

import (
	"context"
	"time"
)

// DefaultTTL matches the dashboard refresh window of the indexer.
const DefaultTTL = 300 * time.Second

// Store is a byte cache keyed by request.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Flush(ctx context.Context) error
}
