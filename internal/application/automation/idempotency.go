package automation

import (
	"context"
	"time"
)

// IdempotencyStore serializes automation runs for the same source document
// across processes. Acquire takes a short-lived lock on the key; a second
// caller gets false until the first releases it or the TTL lapses. The
// database-level guards (ExistsForSource, ExpensePosted) remain the source
// of truth; this store only shields them from concurrent duplicate runs.
type IdempotencyStore interface {
	// Acquire tries to take the key. Returns false if it is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees the key so a later run can proceed
	Release(ctx context.Context, key string) error
}
