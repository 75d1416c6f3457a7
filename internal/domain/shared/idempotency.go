package shared

import (
	"context"
	"time"
)

// IdempotencyStore deduplicates client-supplied idempotency keys
type IdempotencyStore interface {
	// Acquire claims key for ttl. It returns acquired=false and the stored result
	// when the key was claimed before; result is empty while the first request is in flight.
	Acquire(ctx context.Context, key string, ttl time.Duration) (result string, acquired bool, err error)

	// Complete stores the result for a claimed key
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Release frees a claimed key so the request can be retried
	Release(ctx context.Context, key string) error
}
