package cache

import (
	"context"
	"time"
)

// Store is the subset of cache operations the auth subsystem depends on.
// RedisCache is the production implementation; MemoryStore backs tests and
// single-node deployments without Redis. Consumers take the interface so the
// backing store can be swapped without touching auth code.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	// SetNX sets a value only if the key does not exist, reporting whether
	// the write happened. Used for run locks.
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	// CountWindow maintains a sliding window of timestamps under key: trim
	// entries older than window, optionally insert member at the current
	// time, refresh the key TTL, and return the remaining count and the
	// oldest timestamp (UnixNano, zero when empty). Implementations must
	// apply the sub-operations as one atomic unit.
	CountWindow(ctx context.Context, key string, window time.Duration, member string, increment bool) (int64, int64, error)
}

var _ Store = (*RedisCache)(nil)
var _ Store = (*MemoryStore)(nil)
