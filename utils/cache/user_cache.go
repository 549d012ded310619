package cache

import (
	"context"
	"fmt"
	"time"
)

// TTLs for the derived user entries. The cache is never authoritative;
// absence just triggers a rebuild from the persistent store.
const (
	UserSecretTTL = time.Hour
	UserBasicTTL  = 30 * time.Minute
	UserPermsTTL  = time.Hour
)

const (
	userSecretPrefix = "user_secret:"
	userBasicPrefix  = "user_basic:"
	userPermsPrefix  = "user_perms:"
)

// UserBasic is the cached snapshot of the fields the request path needs
// without a database round trip.
type UserBasic struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// UserGrants is the cached flattened role/permission codes for a user.
type UserGrants struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// UserCache stores per-user derived entries (secret, basic data, grants),
// each with its own TTL.
type UserCache struct {
	store Store
}

// NewUserCache creates a user cache over the given backing store
func NewUserCache(store Store) *UserCache {
	return &UserCache{store: store}
}

func userSecretKey(userID uint) string {
	return fmt.Sprintf("%s%d", userSecretPrefix, userID)
}

func userBasicKey(userID uint) string {
	return fmt.Sprintf("%s%d", userBasicPrefix, userID)
}

func userPermsKey(userID uint) string {
	return fmt.Sprintf("%s%d", userPermsPrefix, userID)
}

// GetSecret returns the cached signing secret for a user.
// Returns ErrNotFound on a miss.
func (c *UserCache) GetSecret(ctx context.Context, userID uint) (string, error) {
	return c.store.Get(ctx, userSecretKey(userID))
}

// SetSecret caches the signing secret for a user
func (c *UserCache) SetSecret(ctx context.Context, userID uint, secret string) error {
	return c.store.Set(ctx, userSecretKey(userID), secret, UserSecretTTL)
}

// GetBasic returns the cached basic user snapshot
func (c *UserCache) GetBasic(ctx context.Context, userID uint) (*UserBasic, error) {
	var basic UserBasic
	if err := c.store.GetJSON(ctx, userBasicKey(userID), &basic); err != nil {
		return nil, err
	}
	return &basic, nil
}

// SetBasic caches the basic user snapshot
func (c *UserCache) SetBasic(ctx context.Context, basic *UserBasic) error {
	return c.store.SetJSON(ctx, userBasicKey(basic.ID), basic, UserBasicTTL)
}

// GetGrants returns the cached role/permission codes
func (c *UserCache) GetGrants(ctx context.Context, userID uint) (*UserGrants, error) {
	var grants UserGrants
	if err := c.store.GetJSON(ctx, userPermsKey(userID), &grants); err != nil {
		return nil, err
	}
	return &grants, nil
}

// SetGrants caches the role/permission codes
func (c *UserCache) SetGrants(ctx context.Context, userID uint, grants *UserGrants) error {
	return c.store.SetJSON(ctx, userPermsKey(userID), grants, UserPermsTTL)
}

// Invalidate drops all cached entries for a user
func (c *UserCache) Invalidate(ctx context.Context, userID uint) error {
	return c.store.Delete(ctx, userSecretKey(userID), userBasicKey(userID), userPermsKey(userID))
}
