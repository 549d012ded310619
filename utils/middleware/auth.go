package middleware

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/store"
	"github.com/stockpilot/inventory-api/utils/auth"
	"github.com/stockpilot/inventory-api/utils/cache"
	"github.com/stockpilot/inventory-api/utils/response"
)

// RequestAuthenticator guards routes with bearer token authentication.
//
// The order of checks matters: the revocation lookup runs on peeked,
// unverified claims so a blacklisted token is rejected before any secret
// fetch, and signature verification runs before anything peeked is trusted.
type RequestAuthenticator struct {
	codec     *auth.TokenCodec
	registry  *auth.RevocationRegistry
	secrets   *auth.SecretStore
	users     store.UserStore
	userCache *cache.UserCache
}

// NewRequestAuthenticator creates the authentication middleware
func NewRequestAuthenticator(
	codec *auth.TokenCodec,
	registry *auth.RevocationRegistry,
	secrets *auth.SecretStore,
	users store.UserStore,
	userCache *cache.UserCache,
) *RequestAuthenticator {
	return &RequestAuthenticator{
		codec:     codec,
		registry:  registry,
		secrets:   secrets,
		users:     users,
		userCache: userCache,
	}
}

// extractToken pulls the bearer token out of the Authorization header
func extractToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", auth.ErrTokenMissing
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", auth.ErrTokenInvalid
	}
	return parts[1], nil
}

// Required rejects requests that do not carry a valid, unrevoked access
// token, and attaches the authenticated identity to the request context.
func (m *RequestAuthenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := extractToken(c)
		if err != nil {
			return response.AuthError(c, err)
		}

		// Peek user id, jti and iat without trusting them; they only
		// select which secret to fetch and which blacklist keys to check
		peeked, err := m.codec.PeekClaims(tokenString)
		if err != nil {
			return response.AuthError(c, err)
		}

		issuedAt := time.Time{}
		if peeked.IssuedAt != nil {
			issuedAt = peeked.IssuedAt.Time
		}
		if m.registry.IsRevoked(c.Context(), peeked.ID, peeked.UserID, issuedAt) {
			return response.AuthError(c, auth.ErrTokenRevoked)
		}

		secret, err := m.secrets.GetSecret(c.Context(), peeked.UserID)
		if err != nil {
			if err == auth.ErrUserNotFound {
				return response.AuthError(c, auth.ErrTokenInvalid)
			}
			return response.AuthError(c, auth.ErrSecretUnavailable)
		}

		claims, err := m.codec.DecodeAndVerify(tokenString, secret)
		if err != nil {
			return response.AuthError(c, err)
		}

		// Live activation check; the claim is a stale snapshot
		active, err := m.resolveActive(c.Context(), claims)
		if err != nil {
			return response.InternalServerError(c, "Failed to load user")
		}
		if !active {
			return response.AuthError(c, auth.ErrUserInactive)
		}

		if claims.TokenType != auth.TokenTypeAccess {
			return response.AuthError(c, auth.ErrTokenInvalid)
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("roles", claims.Roles)
		c.Locals("permissions", claims.Permissions)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequirePermission builds on Required and rejects identities whose token
// does not carry the given permission code
func (m *RequestAuthenticator) RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		perms, ok := c.Locals("permissions").([]string)
		if !ok {
			return response.Forbidden(c, "Access denied", "")
		}
		for _, p := range perms {
			if p == permission {
				return c.Next()
			}
		}
		return response.Forbidden(c, "Insufficient permissions", "")
	}
}

// RequireRole builds on Required and rejects identities without one of the
// given role codes
func (m *RequestAuthenticator) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		granted, ok := c.Locals("roles").([]string)
		if !ok {
			return response.Forbidden(c, "Access denied", "")
		}
		for _, have := range granted {
			for _, want := range roles {
				if have == want {
					return c.Next()
				}
			}
		}
		return response.Forbidden(c, "Insufficient permissions", "")
	}
}

// resolveActive returns the user's current is_active flag, cache-first with
// store fallback. When both are unreachable the claim snapshot stands in so
// an infrastructure outage does not lock out every user.
func (m *RequestAuthenticator) resolveActive(ctx context.Context, claims *auth.Claims) (bool, error) {
	basic, err := m.userCache.GetBasic(ctx, claims.UserID)
	if err == nil {
		return basic.IsActive, nil
	}
	if err != cache.ErrNotFound {
		log.Printf("[AuthMiddleware] WARNING: user cache unreachable for user %d: %v", claims.UserID, err)
	}

	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if err == auth.ErrUserNotFound {
			return false, nil
		}
		log.Printf("[AuthMiddleware] WARNING: user store unreachable for user %d, using claim snapshot: %v", claims.UserID, err)
		return claims.IsActive, nil
	}

	if cacheErr := m.userCache.SetBasic(ctx, &cache.UserBasic{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsActive: user.IsActive,
	}); cacheErr != nil {
		log.Printf("[AuthMiddleware] WARNING: failed to cache user %d: %v", user.ID, cacheErr)
	}

	return user.IsActive, nil
}

// GetUserID extracts the authenticated user id from the request context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

// GetUsername extracts the authenticated username from the request context
func GetUsername(c *fiber.Ctx) (string, bool) {
	name, ok := c.Locals("username").(string)
	return name, ok
}

// GetClaims extracts the verified claims from the request context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok
}
