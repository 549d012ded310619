package auth

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/utils/cache"
	"github.com/stockpilot/inventory-api/utils/middleware"
	"github.com/stockpilot/inventory-api/utils/response"
)

// SessionInfo describes the token the request was authenticated with
type SessionInfo struct {
	TokenID   string `json:"token_id"`
	IssuedAt  string `json:"issued_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// ProfileResponse is the authenticated user's own profile
type ProfileResponse struct {
	ID          uint         `json:"id"`
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
	LastLoginAt string       `json:"last_login_at,omitempty"`
	Session     *SessionInfo `json:"session,omitempty"`
}

// Me returns the profile of the authenticated user
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "", "")
	}

	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load user")
	}

	roles, perms, err := h.loadGrants(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load permissions")
	}

	profile := ProfileResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       roles,
		Permissions: perms,
	}
	if user.LastLoginAt != nil {
		profile.LastLoginAt = user.LastLoginAt.Format("2006-01-02 15:04:05")
	}

	if claims, ok := middleware.GetClaims(c); ok {
		session := &SessionInfo{TokenID: claims.ID}
		if claims.IssuedAt != nil {
			session.IssuedAt = claims.IssuedAt.Time.Format("2006-01-02 15:04:05")
		}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time.Format("2006-01-02 15:04:05")
		}
		profile.Session = session
	}

	return response.Success(c, profile)
}

// loadGrants resolves roles and permissions cache-first; a miss rebuilds the
// entry from the permission store
func (h *AuthHandler) loadGrants(ctx context.Context, userID uint) ([]string, []string, error) {
	grants, err := h.userCache.GetGrants(ctx, userID)
	if err == nil {
		return grants.Roles, grants.Permissions, nil
	}
	if err != cache.ErrNotFound {
		log.Printf("[AuthHandler] WARNING: grants cache unreachable for user %d: %v", userID, err)
	}

	roles, perms, err := h.perms.GetRolesAndPermissions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if cacheErr := h.userCache.SetGrants(ctx, userID, &cache.UserGrants{
		Roles:       roles,
		Permissions: perms,
	}); cacheErr != nil {
		log.Printf("[AuthHandler] WARNING: failed to cache grants for user %d: %v", userID, cacheErr)
	}

	return roles, perms, nil
}
