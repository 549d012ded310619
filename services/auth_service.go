package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/store"
	"github.com/stockpilot/inventory-api/utils/auth"
	"github.com/stockpilot/inventory-api/utils/cache"
	"github.com/stockpilot/inventory-api/utils/ratelimit"
)

// TokenPair is an access/refresh token pair returned by login and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult bundles the issued tokens with the authenticated user's
// public profile
type LoginResult struct {
	User        *model.User `json:"user"`
	Roles       []string    `json:"roles"`
	Permissions []string    `json:"permissions"`
	Tokens      TokenPair   `json:"tokens"`
}

// SecurityEventSink receives auth telemetry. EventRecorder is the
// production implementation.
type SecurityEventSink interface {
	Record(ctx context.Context, userID *uint, eventType, identifier, ip, userAgent string, metadata map[string]interface{})
}

// AuthService orchestrates login, token refresh and logout on top of the
// token codec, secret store, revocation registry and login limiter.
type AuthService struct {
	users      store.UserStore
	perms      store.PermissionStore
	codec      *auth.TokenCodec
	secrets    *auth.SecretStore
	registry   *auth.RevocationRegistry
	logins     *ratelimit.LoginLimiter
	events     SecurityEventSink
	userCache  *cache.UserCache
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates the auth service
func NewAuthService(
	users store.UserStore,
	perms store.PermissionStore,
	codec *auth.TokenCodec,
	secrets *auth.SecretStore,
	registry *auth.RevocationRegistry,
	logins *ratelimit.LoginLimiter,
	events SecurityEventSink,
	userCache *cache.UserCache,
	accessTTL, refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:      users,
		perms:      perms,
		codec:      codec,
		secrets:    secrets,
		registry:   registry,
		logins:     logins,
		events:     events,
		userCache:  userCache,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login authenticates a username/password pair and issues a fresh token
// pair. The client IP drives the progressive lockout counter; a successful
// login clears it.
func (s *AuthService) Login(ctx context.Context, username, password, ip, userAgent string) (*LoginResult, error) {
	if blocked, retryAfter := s.logins.IsBlocked(ctx, ip); blocked {
		return nil, &auth.RateLimitedError{RetryAfter: retryAfter}
	}

	user, err := s.users.VerifyCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			attempts, lock := s.logins.RecordFailure(ctx, ip)
			s.events.Record(ctx, nil, model.EventLoginFailed, username, ip, userAgent, map[string]interface{}{
				"attempts": attempts,
			})
			if lock > 0 {
				s.events.Record(ctx, nil, model.EventLockout, username, ip, userAgent, map[string]interface{}{
					"attempts":     attempts,
					"lock_seconds": int64(lock.Seconds()),
				})
			}
		}
		return nil, err
	}

	if !user.IsActive {
		s.events.Record(ctx, &user.ID, model.EventLoginFailed, username, ip, userAgent, map[string]interface{}{
			"reason": "inactive",
		})
		return nil, auth.ErrUserInactive
	}

	secret := user.Secret
	if secret == "" {
		// Provision a signing secret on first login for users seeded
		// without one
		secret, err = s.secrets.ProvisionSecret(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("provision signing secret: %w", err)
		}
	}

	roles, permissions, err := s.perms.GetRolesAndPermissions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}

	pair, err := s.issuePair(user, roles, permissions, secret)
	if err != nil {
		return nil, err
	}

	s.logins.Reset(ctx, ip)

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[AuthService] WARNING: failed to update last login for user %d: %v", user.ID, err)
	}

	s.cacheUser(ctx, user, roles, permissions)

	s.events.Record(ctx, &user.ID, model.EventLoginSuccess, username, ip, userAgent, nil)

	return &LoginResult{
		User:        user,
		Roles:       roles,
		Permissions: permissions,
		Tokens:      *pair,
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The refresh
// token rotates on every use: its jti is blacklisted before the new pair is
// handed out, so a replayed refresh token is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	peeked, err := s.codec.PeekClaims(refreshToken)
	if err != nil {
		return nil, err
	}

	issuedAt := time.Time{}
	if peeked.IssuedAt != nil {
		issuedAt = peeked.IssuedAt.Time
	}
	if s.registry.IsRevoked(ctx, peeked.ID, peeked.UserID, issuedAt) {
		return nil, auth.ErrTokenRevoked
	}

	secret, err := s.secrets.GetSecret(ctx, peeked.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, auth.ErrTokenInvalid
		}
		return nil, err
	}

	claims, err := s.codec.DecodeAndVerify(refreshToken, secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, auth.ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, auth.ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, auth.ErrUserInactive
	}

	// The old refresh token must be dead before the new pair exists; a
	// failed revocation fails the whole refresh
	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.registry.RevokeRefresh(ctx, claims.ID, user.ID, "system", "refresh_rotated", remaining); err != nil {
		return nil, fmt.Errorf("revoke rotated refresh token: %w", err)
	}

	roles, permissions, err := s.perms.GetRolesAndPermissions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}

	return s.issuePair(user, roles, permissions, user.Secret)
}

// Logout revokes the presented access token, or every token of its user
// when allDevices is set. The token is fully verified first so one user
// cannot revoke another user's session by forging claims. Registry write
// failures are logged but the logout still succeeds; the client is
// discarding the token either way.
func (s *AuthService) Logout(ctx context.Context, accessToken string, allDevices bool, ip, userAgent string) error {
	peeked, err := s.codec.PeekClaims(accessToken)
	if err != nil {
		return err
	}

	secret, err := s.secrets.GetSecret(ctx, peeked.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return auth.ErrTokenInvalid
		}
		return err
	}

	claims, err := s.codec.DecodeAndVerify(accessToken, secret)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			// Already dead; nothing to revoke
			return nil
		}
		return err
	}

	reason := "logout"
	if allDevices {
		reason = "logout_all"
		if err := s.registry.RevokeAllForUser(ctx, claims.UserID, reason); err != nil {
			log.Printf("[AuthService] WARNING: failed to mass-revoke tokens for user %d on logout: %v", claims.UserID, err)
		}
	}

	// The presented jti is blacklisted in both modes; this session dies even
	// when the mass marker write fails
	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.registry.Revoke(ctx, claims.ID, claims.UserID, claims.Username, reason, remaining); err != nil {
		log.Printf("[AuthService] WARNING: failed to revoke token %s on logout: %v", claims.ID, err)
	}

	s.events.Record(ctx, &claims.UserID, model.EventLogout, claims.Username, ip, userAgent, map[string]interface{}{
		"all_devices": allDevices,
	})

	return nil
}

// RevokeUserSessions force-logs-out every session of the target user and
// drops the user's cached entries so stale grants do not outlive the
// revocation. Admin action; the acting username goes into the event record.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID uint, actor, ip, userAgent string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.registry.RevokeAllForUser(ctx, userID, "admin_revoked"); err != nil {
		return fmt.Errorf("revoke sessions for user %d: %w", userID, err)
	}

	if err := s.userCache.Invalidate(ctx, userID); err != nil {
		log.Printf("[AuthService] WARNING: failed to invalidate cache for user %d: %v", userID, err)
	}

	s.events.Record(ctx, &userID, model.EventTokenRevoked, actor, ip, userAgent, map[string]interface{}{
		"scope": "all_sessions",
	})

	return nil
}

// RotateUserSecret replaces the target user's signing secret. Every token
// signed with the old secret stops verifying, and the mass marker set by the
// rotation covers verifications against a stale cached secret.
func (s *AuthService) RotateUserSecret(ctx context.Context, userID uint, actor, ip, userAgent string) error {
	if _, err := s.secrets.RotateSecret(ctx, userID); err != nil {
		return err
	}

	s.events.Record(ctx, &userID, model.EventSecretRotated, actor, ip, userAgent, nil)

	return nil
}

func (s *AuthService) issuePair(user *model.User, roles, permissions []string, secret string) (*TokenPair, error) {
	input := auth.TokenInput{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		Roles:       roles,
		Permissions: permissions,
	}

	access, _, err := s.codec.Issue(input, auth.TokenTypeAccess, s.accessTTL, secret)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, err := s.codec.Issue(input, auth.TokenTypeRefresh, s.refreshTTL, secret)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// cacheUser warms the user caches after a successful login, best-effort
func (s *AuthService) cacheUser(ctx context.Context, user *model.User, roles, permissions []string) {
	if err := s.userCache.SetBasic(ctx, &cache.UserBasic{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsActive: user.IsActive,
	}); err != nil {
		log.Printf("[AuthService] WARNING: failed to cache user %d: %v", user.ID, err)
	}
	if err := s.userCache.SetGrants(ctx, user.ID, &cache.UserGrants{
		Roles:       roles,
		Permissions: permissions,
	}); err != nil {
		log.Printf("[AuthService] WARNING: failed to cache grants for user %d: %v", user.ID, err)
	}
}
