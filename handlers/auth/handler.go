package auth

import (
	"github.com/stockpilot/inventory-api/services"
	"github.com/stockpilot/inventory-api/store"
	"github.com/stockpilot/inventory-api/utils/cache"
	"github.com/stockpilot/inventory-api/utils/validation"
)

// AuthHandler serves the authentication endpoints
type AuthHandler struct {
	auth      *services.AuthService
	users     store.UserStore
	perms     store.PermissionStore
	userCache *cache.UserCache
	validator *validation.Validator
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(authService *services.AuthService, users store.UserStore, perms store.PermissionStore, userCache *cache.UserCache) *AuthHandler {
	return &AuthHandler{
		auth:      authService,
		users:     users,
		perms:     perms,
		userCache: userCache,
		validator: validation.NewValidator(),
	}
}
