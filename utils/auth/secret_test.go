package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/utils/cache"
)

// fakeSecretSource is an in-memory SecretSource
type fakeSecretSource struct {
	users    map[uint]*model.User
	setErr   error
	getCalls int
}

func (f *fakeSecretSource) GetByID(_ context.Context, userID uint) (*model.User, error) {
	f.getCalls++
	user, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeSecretSource) SetSecret(_ context.Context, userID uint, secret string) error {
	if f.setErr != nil {
		return f.setErr
	}
	user, ok := f.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Secret = secret
	return nil
}

func newSecretFixture() (*SecretStore, *fakeSecretSource, *cache.UserCache, *RevocationRegistry) {
	source := &fakeSecretSource{users: map[uint]*model.User{
		7: {ID: 7, Username: "clerk1", Secret: "stored-secret"},
	}}
	backing := cache.NewMemoryStore()
	userCache := cache.NewUserCache(backing)
	registry := NewRevocationRegistry(backing, 30*time.Minute, 7*24*time.Hour)
	return NewSecretStore(source, userCache, registry), source, userCache, registry
}

func TestNewSecretIsRandomHex(t *testing.T) {
	s1, err := NewSecret()
	require.NoError(t, err)
	s2, err := NewSecret()
	require.NoError(t, err)

	assert.Len(t, s1, 64)
	assert.NotEqual(t, s1, s2)
}

func TestGetSecretCacheFirst(t *testing.T) {
	secrets, source, userCache, _ := newSecretFixture()
	ctx := context.Background()

	require.NoError(t, userCache.SetSecret(ctx, 7, "cached-secret"))

	secret, err := secrets.GetSecret(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "cached-secret", secret)
	assert.Zero(t, source.getCalls)
}

func TestGetSecretMissRepopulatesCache(t *testing.T) {
	secrets, source, userCache, _ := newSecretFixture()
	ctx := context.Background()

	secret, err := secrets.GetSecret(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "stored-secret", secret)
	assert.Equal(t, 1, source.getCalls)

	cached, err := userCache.GetSecret(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "stored-secret", cached)

	// Second read is served from cache
	_, err = secrets.GetSecret(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, source.getCalls)
}

func TestGetSecretUnknownUser(t *testing.T) {
	secrets, _, _, _ := newSecretFixture()

	_, err := secrets.GetSecret(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRotateSecretInvalidatesOldTokens(t *testing.T) {
	secrets, source, userCache, registry := newSecretFixture()
	ctx := context.Background()
	issuedBefore := time.Now().Add(-time.Second)

	newSecret, err := secrets.RotateSecret(ctx, 7)
	require.NoError(t, err)
	assert.NotEqual(t, "stored-secret", newSecret)

	// Persisted and recached
	assert.Equal(t, newSecret, source.users[7].Secret)
	cached, err := userCache.GetSecret(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, newSecret, cached)

	// Tokens issued before the rotation are revoked via the mass marker
	assert.True(t, registry.IsRevoked(ctx, "old-jti", 7, issuedBefore))
	assert.False(t, registry.IsRevoked(ctx, "new-jti", 7, time.Now().Add(time.Second)))
}

func TestRotateSecretPersistFailureSkipsRevocation(t *testing.T) {
	secrets, source, _, registry := newSecretFixture()
	ctx := context.Background()
	source.setErr = errors.New("database down")

	_, err := secrets.RotateSecret(ctx, 7)
	require.Error(t, err)

	// Old secret still in place, nothing revoked
	assert.Equal(t, "stored-secret", source.users[7].Secret)
	assert.False(t, registry.IsRevoked(ctx, "old-jti", 7, time.Now().Add(-time.Second)))
}

func TestProvisionSecretDoesNotRevoke(t *testing.T) {
	secrets, source, _, registry := newSecretFixture()
	ctx := context.Background()
	source.users[7].Secret = ""

	secret, err := secrets.ProvisionSecret(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, secret, source.users[7].Secret)

	assert.False(t, registry.IsRevoked(ctx, "any-jti", 7, time.Time{}))
}
