package auth

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/stockpilot/inventory-api/utils/cache"
)

const (
	accessBlacklistPrefix  = "token_blacklist:"
	refreshBlacklistPrefix = "refresh_blacklist:"
	massRevokePrefix       = "user_tokens_revoked:"
)

// BlacklistEntry is the serialized record stored under a revoked jti
type BlacklistEntry struct {
	Reason    string    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
	RevokedBy string    `json:"revoked_by"`
	UserID    uint      `json:"user_id"`
}

// MassRevocation marks every token of a user issued before AllTokensBefore
// as revoked. Stored per user with TTL equal to the maximum refresh token
// lifetime, after which no token that old can still be live anyway.
type MassRevocation struct {
	AllTokensBefore time.Time `json:"all_tokens_before"`
	Reason          string    `json:"reason"`
}

// RevocationRegistry tracks revoked token ids and per-user mass revocation
// markers in the cache. Entries expire naturally via TTL.
//
// Lookup failures fail open: a dead cache must not take down every
// authenticated request, so the token is treated as not revoked and the
// failure is logged. Revocation writes do surface their errors; callers
// decide whether a failed write is fatal for their flow.
type RevocationRegistry struct {
	store         cache.Store
	maxAccessTTL  time.Duration
	maxRefreshTTL time.Duration
}

// NewRevocationRegistry creates a revocation registry. maxAccessTTL and
// maxRefreshTTL cap blacklist entry lifetimes for the two token types.
func NewRevocationRegistry(store cache.Store, maxAccessTTL, maxRefreshTTL time.Duration) *RevocationRegistry {
	return &RevocationRegistry{
		store:         store,
		maxAccessTTL:  maxAccessTTL,
		maxRefreshTTL: maxRefreshTTL,
	}
}

func accessBlacklistKey(jti string) string {
	return accessBlacklistPrefix + jti
}

func refreshBlacklistKey(jti string) string {
	return refreshBlacklistPrefix + jti
}

func massRevokeKey(userID uint) string {
	return massRevokePrefix + strconv.FormatUint(uint64(userID), 10)
}

// Revoke blacklists an access-token jti. ttl should be the token's remaining
// lifetime; it is capped at the configured maximum.
func (r *RevocationRegistry) Revoke(ctx context.Context, jti string, userID uint, revokedBy, reason string, ttl time.Duration) error {
	return r.revoke(ctx, accessBlacklistKey(jti), userID, revokedBy, reason, clampTTL(ttl, r.maxAccessTTL))
}

// RevokeRefresh blacklists a refresh-token jti, using the longer refresh cap
func (r *RevocationRegistry) RevokeRefresh(ctx context.Context, jti string, userID uint, revokedBy, reason string, ttl time.Duration) error {
	return r.revoke(ctx, refreshBlacklistKey(jti), userID, revokedBy, reason, clampTTL(ttl, r.maxRefreshTTL))
}

func (r *RevocationRegistry) revoke(ctx context.Context, key string, userID uint, revokedBy, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to blacklist
		return nil
	}
	entry := BlacklistEntry{
		Reason:    reason,
		RevokedAt: time.Now(),
		RevokedBy: revokedBy,
		UserID:    userID,
	}
	return r.store.SetJSON(ctx, key, entry, ttl)
}

// RevokeAllForUser sets the mass revocation marker for a user. Idempotent:
// re-invoking refreshes the timestamp and the marker TTL.
func (r *RevocationRegistry) RevokeAllForUser(ctx context.Context, userID uint, reason string) error {
	// Truncated to seconds to match iat granularity. Combined with the
	// inclusive comparison in IsRevoked, a token issued in the same second
	// as the revocation counts as revoked.
	marker := MassRevocation{
		AllTokensBefore: time.Now().Truncate(time.Second),
		Reason:          reason,
	}
	return r.store.SetJSON(ctx, massRevokeKey(userID), marker, r.maxRefreshTTL)
}

// IsRevoked reports whether a token is revoked, checking the access and
// refresh jti blacklists and then the user's mass revocation marker.
//
// When issuedAt is known (the middleware peeks it from the claims), the
// marker comparison is exact: only tokens issued strictly after the marker
// survive. Both sides carry second granularity, so a token issued in the
// same second as the revocation is revoked; the approximation errs toward
// revoking. When issuedAt is zero the presence of a marker revokes
// everything for the user until the marker lapses.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, jti string, userID uint, issuedAt time.Time) bool {
	if jti != "" {
		if revoked, ok := r.existsFailOpen(ctx, accessBlacklistKey(jti)); ok && revoked {
			return true
		}
		if revoked, ok := r.existsFailOpen(ctx, refreshBlacklistKey(jti)); ok && revoked {
			return true
		}
	}

	if userID == 0 {
		return false
	}

	var marker MassRevocation
	err := r.store.GetJSON(ctx, massRevokeKey(userID), &marker)
	if err != nil {
		if err != cache.ErrNotFound {
			log.Printf("[Blacklist] WARNING: mass revocation lookup failed for user %d, treating token as not revoked: %v", userID, err)
		}
		return false
	}

	if issuedAt.IsZero() {
		return true
	}
	return !issuedAt.After(marker.AllTokensBefore)
}

// Entry returns the blacklist record for a jti, checking both keyspaces.
// Returns cache.ErrNotFound when the jti is not blacklisted.
func (r *RevocationRegistry) Entry(ctx context.Context, jti string) (*BlacklistEntry, error) {
	var entry BlacklistEntry
	err := r.store.GetJSON(ctx, accessBlacklistKey(jti), &entry)
	if err == cache.ErrNotFound {
		err = r.store.GetJSON(ctx, refreshBlacklistKey(jti), &entry)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// existsFailOpen wraps the existence check with fail-open semantics.
// The second return reports whether the lookup itself succeeded.
func (r *RevocationRegistry) existsFailOpen(ctx context.Context, key string) (bool, bool) {
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		log.Printf("[Blacklist] WARNING: revocation lookup failed for %s, treating token as not revoked: %v", key, err)
		return false, false
	}
	return exists, true
}

func clampTTL(ttl, max time.Duration) time.Duration {
	if ttl > max {
		return max
	}
	return ttl
}
