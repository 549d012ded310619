package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/inventory-api/utils/cache"
)

const (
	rateLimitPrefix = "rate_limit:"
	penaltyPrefix   = "penalty:"

	// Burst protection: a short secondary window acting as a circuit
	// breaker against rapid-fire abuse.
	burstWindow    = 10 * time.Second
	burstThreshold = 10
	penaltyTTL     = 60 * time.Second
)

// Result is the outcome of a rate limit check
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter implements sliding-window rate limiting over the backing store.
// The window is a set of request timestamps; trim, count, insert and expiry
// run as one atomic unit against the store (see cache.Store.CountWindow).
//
// Store failures fail open with a generous remaining count: availability is
// prioritized over strict throttling, and every such failure is logged.
type Limiter struct {
	store cache.Store
}

// NewLimiter creates a sliding-window rate limiter
func NewLimiter(store cache.Store) *Limiter {
	return &Limiter{store: store}
}

func windowKey(scope, identifier string) string {
	return fmt.Sprintf("%s%s_%s", rateLimitPrefix, scope, identifier)
}

func penaltyKey(identifier string) string {
	return penaltyPrefix + identifier
}

// CheckAndIncrement counts the requests for scope/identifier in the trailing
// window and, when doIncrement is set, records the current request. Allowed
// is true while the count after insertion stays within limit.
func (l *Limiter) CheckAndIncrement(ctx context.Context, scope, identifier string, limit int, window time.Duration, doIncrement bool) Result {
	key := windowKey(scope, identifier)

	count, oldest, err := l.store.CountWindow(ctx, key, window, uuid.New().String(), doIncrement)
	if err != nil {
		log.Printf("[RateLimit] ERROR: window update failed for %s, allowing request: %v", key, err)
		return Result{Allowed: true, Remaining: limit, ResetAt: time.Now().Add(window)}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	resetAt := time.Now().Add(window)
	if oldest > 0 {
		resetAt = time.Unix(0, oldest).Add(window)
	}

	return Result{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// CheckBurst records the request against the short burst window and reports
// whether the identifier is in a penalty cool-down. Crossing the burst
// threshold sets a timed penalty flag independent of the main window.
func (l *Limiter) CheckBurst(ctx context.Context, identifier string) (bool, time.Duration) {
	pKey := penaltyKey(identifier)

	penalized, err := l.store.Exists(ctx, pKey)
	if err != nil {
		log.Printf("[RateLimit] ERROR: penalty lookup failed for %s, allowing request: %v", identifier, err)
		return false, 0
	}
	if penalized {
		ttl, err := l.store.TTL(ctx, pKey)
		if err != nil || ttl < 0 {
			ttl = penaltyTTL
		}
		return true, ttl
	}

	count, _, err := l.store.CountWindow(ctx, windowKey("burst", identifier), burstWindow, uuid.New().String(), true)
	if err != nil {
		log.Printf("[RateLimit] ERROR: burst window update failed for %s, allowing request: %v", identifier, err)
		return false, 0
	}

	if count >= burstThreshold {
		if err := l.store.Set(ctx, pKey, "1", penaltyTTL); err != nil {
			log.Printf("[RateLimit] ERROR: failed to set penalty flag for %s: %v", identifier, err)
			return false, 0
		}
		return true, penaltyTTL
	}

	return false, 0
}
