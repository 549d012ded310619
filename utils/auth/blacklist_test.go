package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/inventory-api/utils/cache"
)

// brokenStore simulates an unreachable cache backend
type brokenStore struct {
	*cache.MemoryStore
}

var errStoreDown = errors.New("store down")

func (b *brokenStore) Exists(context.Context, string) (bool, error) {
	return false, errStoreDown
}

func (b *brokenStore) GetJSON(context.Context, string, interface{}) error {
	return errStoreDown
}

func newTestRegistry() (*RevocationRegistry, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	return NewRevocationRegistry(store, 30*time.Minute, 7*24*time.Hour), store
}

func TestRevokeUntilExpiry(t *testing.T) {
	registry, store := newTestRegistry()
	ctx := context.Background()

	now := time.Now()
	store.Now = func() time.Time { return now }

	require.NoError(t, registry.Revoke(ctx, "jti-1", 7, "user", "logout", 10*time.Minute))
	assert.True(t, registry.IsRevoked(ctx, "jti-1", 7, time.Time{}))

	// After the entry's TTL the jti no longer matters; the token itself
	// has expired by then
	now = now.Add(11 * time.Minute)
	assert.False(t, registry.IsRevoked(ctx, "jti-1", 7, time.Time{}))
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "jti-old", 7, "user", "logout", -time.Second))
	assert.False(t, registry.IsRevoked(ctx, "jti-old", 7, time.Time{}))
}

func TestRevokeTTLClamped(t *testing.T) {
	registry, store := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "jti-long", 7, "user", "logout", 24*time.Hour))

	ttl, err := store.TTL(ctx, "token_blacklist:jti-long")
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 30*time.Minute)
}

func TestRefreshBlacklistChecked(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, registry.RevokeRefresh(ctx, "jti-r", 7, "system", "refresh_rotated", time.Hour))
	assert.True(t, registry.IsRevoked(ctx, "jti-r", 7, time.Time{}))
}

func TestMassRevocationExactIssueTime(t *testing.T) {
	registry, store := newTestRegistry()
	ctx := context.Background()

	before := time.Now().Add(-time.Minute)
	require.NoError(t, registry.RevokeAllForUser(ctx, 7, "secret_rotated"))
	after := time.Now().Add(time.Minute)

	// Issued before the marker: revoked. Issued after: still valid.
	assert.True(t, registry.IsRevoked(ctx, "fresh-jti", 7, before))
	assert.False(t, registry.IsRevoked(ctx, "fresh-jti", 7, after))

	// Unknown issue time falls back to marker presence
	assert.True(t, registry.IsRevoked(ctx, "fresh-jti", 7, time.Time{}))

	// Other users are untouched
	assert.False(t, registry.IsRevoked(ctx, "fresh-jti", 8, before))

	// iat carries second granularity, so a token issued in the marker's own
	// second must count as revoked; the second after it survives
	var marker MassRevocation
	require.NoError(t, store.GetJSON(ctx, "user_tokens_revoked:7", &marker))
	assert.True(t, registry.IsRevoked(ctx, "fresh-jti", 7, marker.AllTokensBefore))
	assert.False(t, registry.IsRevoked(ctx, "fresh-jti", 7, marker.AllTokensBefore.Add(time.Second)))
}

func TestLookupFailureFailsOpen(t *testing.T) {
	store := &brokenStore{cache.NewMemoryStore()}
	registry := NewRevocationRegistry(store, 30*time.Minute, 7*24*time.Hour)
	ctx := context.Background()

	assert.False(t, registry.IsRevoked(ctx, "any-jti", 7, time.Time{}))
}

func TestEntryRecordsReason(t *testing.T) {
	registry, _ := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, registry.Revoke(ctx, "jti-2", 9, "admin", "compromised", time.Minute))

	entry, err := registry.Entry(ctx, "jti-2")
	require.NoError(t, err)
	assert.Equal(t, "compromised", entry.Reason)
	assert.Equal(t, uint(9), entry.UserID)
	assert.Equal(t, "admin", entry.RevokedBy)
}
