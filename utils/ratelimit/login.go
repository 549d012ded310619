package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/stockpilot/inventory-api/utils/cache"
)

const (
	failedLoginPrefix = "failed_login:"
	loginLockPrefix   = "login_lock:"

	// Progressive lockout tiers for consecutive failed logins
	warningThreshold  = 5
	warningLock       = 15 * time.Minute
	criticalThreshold = 10
	criticalLock      = time.Hour

	// The failure counter itself expires after this window of inactivity
	failureCounterTTL = time.Hour
)

// LoginLimiter tracks consecutive failed login attempts per identifier
// (client IP) and applies escalating lockouts. A successful login clears
// both the counter and any active lock.
type LoginLimiter struct {
	store cache.Store
}

// NewLoginLimiter creates a login failure limiter
func NewLoginLimiter(store cache.Store) *LoginLimiter {
	return &LoginLimiter{store: store}
}

func failedLoginKey(identifier string) string {
	return failedLoginPrefix + identifier
}

func loginLockKey(identifier string) string {
	return loginLockPrefix + identifier
}

// IsBlocked reports whether the identifier is currently locked out and for
// how much longer. Store failures fail open.
func (l *LoginLimiter) IsBlocked(ctx context.Context, identifier string) (bool, time.Duration) {
	key := loginLockKey(identifier)

	locked, err := l.store.Exists(ctx, key)
	if err != nil {
		log.Printf("[LoginLimit] ERROR: lockout lookup failed for %s, allowing attempt: %v", identifier, err)
		return false, 0
	}
	if !locked {
		return false, 0
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil || ttl < 0 {
		ttl = warningLock
	}
	return true, ttl
}

// RecordFailure increments the failure counter and applies the lockout tier
// it lands in. Returns the attempt count and the lock duration applied
// (zero when below the warning threshold).
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) (int64, time.Duration) {
	key := failedLoginKey(identifier)

	attempts, err := l.store.Increment(ctx, key)
	if err != nil {
		log.Printf("[LoginLimit] ERROR: failed to record login failure for %s: %v", identifier, err)
		return 0, 0
	}
	if attempts == 1 {
		if err := l.store.Expire(ctx, key, failureCounterTTL); err != nil {
			log.Printf("[LoginLimit] ERROR: failed to set failure counter expiry for %s: %v", identifier, err)
		}
	}

	var lock time.Duration
	switch {
	case attempts >= criticalThreshold:
		lock = criticalLock
	case attempts >= warningThreshold:
		lock = warningLock
	default:
		return attempts, 0
	}

	if err := l.store.Set(ctx, loginLockKey(identifier), "locked", lock); err != nil {
		log.Printf("[LoginLimit] ERROR: failed to apply lockout for %s: %v", identifier, err)
		return attempts, 0
	}
	return attempts, lock
}

// Reset clears the failure counter and any active lock for the identifier
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) {
	if err := l.store.Delete(ctx, failedLoginKey(identifier), loginLockKey(identifier)); err != nil {
		log.Printf("[LoginLimit] ERROR: failed to clear lockout state for %s: %v", identifier, err)
	}
}
