package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stockpilot/inventory-api/utils/cache"
)

func TestProgressiveLockout(t *testing.T) {
	store := cache.NewMemoryStore()
	now := time.Now()
	store.Now = func() time.Time { return now }
	logins := NewLoginLimiter(store)
	ctx := context.Background()

	// Four failures: annoying, not locked
	for i := 0; i < 4; i++ {
		attempts, lock := logins.RecordFailure(ctx, "10.0.0.1")
		assert.Equal(t, int64(i+1), attempts)
		assert.Zero(t, lock)
	}
	blocked, _ := logins.IsBlocked(ctx, "10.0.0.1")
	assert.False(t, blocked)

	// Fifth failure: 15 minute lock
	attempts, lock := logins.RecordFailure(ctx, "10.0.0.1")
	assert.Equal(t, int64(5), attempts)
	assert.Equal(t, 15*time.Minute, lock)

	blocked, retryAfter := logins.IsBlocked(ctx, "10.0.0.1")
	assert.True(t, blocked)
	assert.Equal(t, 15*time.Minute, retryAfter)

	// Lock lapses with time
	now = now.Add(16 * time.Minute)
	blocked, _ = logins.IsBlocked(ctx, "10.0.0.1")
	assert.False(t, blocked)

	// The counter survives the lock; failures 6 through 10 escalate to an
	// hour-long lock
	for i := 0; i < 4; i++ {
		logins.RecordFailure(ctx, "10.0.0.1")
	}
	attempts, lock = logins.RecordFailure(ctx, "10.0.0.1")
	assert.Equal(t, int64(10), attempts)
	assert.Equal(t, time.Hour, lock)

	blocked, retryAfter = logins.IsBlocked(ctx, "10.0.0.1")
	assert.True(t, blocked)
	assert.Equal(t, time.Hour, retryAfter)
}

func TestSuccessResetsLockout(t *testing.T) {
	store := cache.NewMemoryStore()
	logins := NewLoginLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		logins.RecordFailure(ctx, "10.0.0.1")
	}
	blocked, _ := logins.IsBlocked(ctx, "10.0.0.1")
	assert.True(t, blocked)

	logins.Reset(ctx, "10.0.0.1")

	blocked, _ = logins.IsBlocked(ctx, "10.0.0.1")
	assert.False(t, blocked)

	// Counting starts over after the reset
	attempts, lock := logins.RecordFailure(ctx, "10.0.0.1")
	assert.Equal(t, int64(1), attempts)
	assert.Zero(t, lock)
}

func TestFailureCounterExpires(t *testing.T) {
	store := cache.NewMemoryStore()
	now := time.Now()
	store.Now = func() time.Time { return now }
	logins := NewLoginLimiter(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		logins.RecordFailure(ctx, "10.0.0.1")
	}

	// An hour of quiet clears the slate
	now = now.Add(61 * time.Minute)
	attempts, _ := logins.RecordFailure(ctx, "10.0.0.1")
	assert.Equal(t, int64(1), attempts)
}

func TestLockoutIdentifiersIsolated(t *testing.T) {
	store := cache.NewMemoryStore()
	logins := NewLoginLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		logins.RecordFailure(ctx, "10.0.0.1")
	}

	blocked, _ := logins.IsBlocked(ctx, "10.0.0.2")
	assert.False(t, blocked)
}
