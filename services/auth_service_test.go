package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/utils/auth"
	"github.com/stockpilot/inventory-api/utils/cache"
	"github.com/stockpilot/inventory-api/utils/ratelimit"
)

// fakeUserStore keeps users in memory and checks passwords in plaintext
type fakeUserStore struct {
	byID       map[uint]*model.User
	byUsername map[string]*model.User
	passwords  map[string]string
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	f := &fakeUserStore{
		byID:       make(map[uint]*model.User),
		byUsername: make(map[string]*model.User),
		passwords:  make(map[string]string),
	}
	for _, u := range users {
		f.byID[u.ID] = u
		f.byUsername[u.Username] = u
	}
	return f
}

func (f *fakeUserStore) GetByID(_ context.Context, userID uint) (*model.User, error) {
	user, ok := f.byID[userID]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) SetSecret(_ context.Context, userID uint, secret string) error {
	user, ok := f.byID[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.Secret = secret
	return nil
}

func (f *fakeUserStore) VerifyCredentials(_ context.Context, username, password string) (*model.User, error) {
	user, ok := f.byUsername[username]
	if !ok || f.passwords[username] != password {
		return nil, auth.ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, userID uint) error {
	now := time.Now()
	if user, ok := f.byID[userID]; ok {
		user.LastLoginAt = &now
	}
	return nil
}

// fakePermStore grants every user the same codes
type fakePermStore struct {
	roles []string
	perms []string
}

func (f *fakePermStore) GetRolesAndPermissions(context.Context, uint) ([]string, []string, error) {
	return f.roles, f.perms, nil
}

// recordingSink captures telemetry event types in order
type recordingSink struct {
	types []string
}

func (r *recordingSink) Record(_ context.Context, _ *uint, eventType, _, _, _ string, _ map[string]interface{}) {
	r.types = append(r.types, eventType)
}

type authFixture struct {
	service  *AuthService
	users    *fakeUserStore
	codec    *auth.TokenCodec
	registry *auth.RevocationRegistry
	backing  *cache.MemoryStore
	events   *recordingSink
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	secret, err := auth.NewSecret()
	require.NoError(t, err)

	clerk := &model.User{ID: 7, Username: "clerk1", Email: "clerk1@example.com", IsActive: true, Secret: secret}
	dormant := &model.User{ID: 8, Username: "dormant", Email: "dormant@example.com", IsActive: false, Secret: secret}

	users := newFakeUserStore(clerk, dormant)
	users.passwords["clerk1"] = "correct horse battery"
	users.passwords["dormant"] = "correct horse battery"

	backing := cache.NewMemoryStore()
	userCache := cache.NewUserCache(backing)
	codec := auth.NewTokenCodec(auth.TokenCodecConfig{GlobalSecret: "global", Issuer: "inventory-api-test"})
	registry := auth.NewRevocationRegistry(backing, 30*time.Minute, 7*24*time.Hour)
	secrets := auth.NewSecretStore(users, userCache, registry)
	logins := ratelimit.NewLoginLimiter(backing)
	perms := &fakePermStore{roles: []string{"clerk"}, perms: []string{"inventory:read"}}

	events := &recordingSink{}
	service := NewAuthService(users, perms, codec, secrets, registry, logins, events, userCache,
		30*time.Minute, 7*24*time.Hour)

	return &authFixture{service: service, users: users, codec: codec, registry: registry, backing: backing, events: events}
}

func TestLoginIssuesVerifiableTokenPair(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Bearer", result.Tokens.TokenType)
	assert.Equal(t, int64(1800), result.Tokens.ExpiresIn)
	assert.Equal(t, []string{"clerk"}, result.Roles)

	userSecret := fx.users.byID[7].Secret

	access, err := fx.codec.DecodeAndVerify(result.Tokens.AccessToken, userSecret)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeAccess, access.TokenType)
	assert.Equal(t, uint(7), access.UserID)

	refresh, err := fx.codec.DecodeAndVerify(result.Tokens.RefreshToken, userSecret)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeRefresh, refresh.TokenType)
	assert.NotEqual(t, access.ID, refresh.ID)

	// Last login stamped
	assert.NotNil(t, fx.users.byID[7].LastLoginAt)
}

func TestLoginWrongPassword(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.service.Login(context.Background(), "clerk1", "wrong", "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginUnknownUserSameError(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.service.Login(context.Background(), "nobody", "whatever", "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.service.Login(context.Background(), "dormant", "correct horse battery", "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, auth.ErrUserInactive)
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := fx.service.Login(ctx, "clerk1", "wrong", "10.0.0.1", "test-agent")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	// Even the right password is refused while locked
	_, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	var rateLimited *auth.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Greater(t, rateLimited.RetryAfter, time.Duration(0))

	// A different client is unaffected
	_, err = fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.2", "test-agent")
	assert.NoError(t, err)
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		fx.service.Login(ctx, "clerk1", "wrong", "10.0.0.1", "test-agent")
	}
	_, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	// The counter restarted; four more failures stay under the threshold
	for i := 0; i < 4; i++ {
		fx.service.Login(ctx, "clerk1", "wrong", "10.0.0.1", "test-agent")
	}
	_, err = fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	assert.NoError(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	pair, err := fx.service.Refresh(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, result.Tokens.RefreshToken, pair.RefreshToken)

	// The spent refresh token is dead
	_, err = fx.service.Refresh(ctx, result.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	// The new one works
	_, err = fx.service.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	_, err = fx.service.Refresh(ctx, result.Tokens.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.service.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefreshDeactivatedUser(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	fx.users.byID[7].IsActive = false

	_, err = fx.service.Refresh(ctx, result.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrUserInactive)
}

func TestLogoutRevokesToken(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	jti, err := fx.codec.PeekJTI(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.False(t, fx.registry.IsRevoked(ctx, jti, 7, time.Time{}))

	require.NoError(t, fx.service.Logout(ctx, result.Tokens.AccessToken, false, "10.0.0.1", "test-agent"))
	assert.True(t, fx.registry.IsRevoked(ctx, jti, 7, time.Time{}))

	// Single-session logout leaves the refresh token alone
	_, err = fx.service.Refresh(ctx, result.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutAllDevices(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	first, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	second, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.3", "test-agent")
	require.NoError(t, err)

	// No delay between login and logout: sessions issued in the same
	// second as the revocation must die too
	require.NoError(t, fx.service.Logout(ctx, second.Tokens.AccessToken, true, "10.0.0.3", "test-agent"))

	// The presented access token is rejected on the next request
	jti, err := fx.codec.PeekJTI(second.Tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, fx.registry.IsRevoked(ctx, jti, 7, time.Time{}))

	// Every session is revoked, including the other device's
	_, err = fx.service.Refresh(ctx, first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	_, err = fx.service.Refresh(ctx, second.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestLogoutForgedToken(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	// Token signed with a secret the server never issued
	forgedCodec := auth.NewTokenCodec(auth.TokenCodecConfig{GlobalSecret: "attacker", Issuer: "inventory-api-test"})
	forged, _, err := forgedCodec.Issue(auth.TokenInput{UserID: 7, Username: "clerk1"}, auth.TokenTypeAccess, time.Minute, "attacker-secret")
	require.NoError(t, err)

	err = fx.service.Logout(ctx, forged, true, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	// Nothing was revoked for the real user
	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	_, err = fx.service.Refresh(ctx, result.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRevokeUserSessions(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	require.NoError(t, fx.service.RevokeUserSessions(ctx, 7, "admin", "10.0.0.9", "test-agent"))

	// Takes effect immediately, even within the issuance second
	_, err = fx.service.Refresh(ctx, result.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	// Cached user entries are dropped along with the sessions
	cached, err := fx.backing.Exists(ctx, "user_basic:7")
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Contains(t, fx.events.types, model.EventTokenRevoked)
}

func TestRevokeUserSessionsUnknownUser(t *testing.T) {
	fx := newAuthFixture(t)

	err := fx.service.RevokeUserSessions(context.Background(), 99, "admin", "10.0.0.9", "test-agent")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestRotateUserSecretKillsOldTokens(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	oldSecret := fx.users.byID[7].Secret

	require.NoError(t, fx.service.RotateUserSecret(ctx, 7, "admin", "10.0.0.9", "test-agent"))

	assert.NotEqual(t, oldSecret, fx.users.byID[7].Secret)
	_, err = fx.service.Refresh(ctx, result.Tokens.RefreshToken)
	assert.Error(t, err)

	assert.Contains(t, fx.events.types, model.EventSecretRotated)
}

func TestLoginProvisionsMissingSecret(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.users.byID[7].Secret = ""

	result, err := fx.service.Login(ctx, "clerk1", "correct horse battery", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	provisioned := fx.users.byID[7].Secret
	require.NotEmpty(t, provisioned)

	_, err = fx.codec.DecodeAndVerify(result.Tokens.AccessToken, provisioned)
	assert.NoError(t, err)
}
