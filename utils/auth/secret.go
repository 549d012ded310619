package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/utils/cache"
)

// SecretSource is the persistent side of secret resolution. The GORM user
// store satisfies it; tests substitute fakes.
type SecretSource interface {
	GetByID(ctx context.Context, userID uint) (*model.User, error)
	SetSecret(ctx context.Context, userID uint, secret string) error
}

// SecretStore resolves per-user signing secrets cache-first with fallback to
// the persistent user store. A dead cache degrades to direct store reads
// instead of failing the request.
type SecretStore struct {
	users    SecretSource
	cache    *cache.UserCache
	registry *RevocationRegistry
}

// NewSecretStore creates a secret store
func NewSecretStore(users SecretSource, userCache *cache.UserCache, registry *RevocationRegistry) *SecretStore {
	return &SecretStore{
		users:    users,
		cache:    userCache,
		registry: registry,
	}
}

// NewSecret generates a fresh signing secret: 32 random bytes, hex encoded
func NewSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GetSecret returns the user's current signing secret. Cache miss rebuilds
// the entry from the persistent store; cache failure falls through to the
// store directly.
func (s *SecretStore) GetSecret(ctx context.Context, userID uint) (string, error) {
	secret, err := s.cache.GetSecret(ctx, userID)
	if err == nil {
		return secret, nil
	}
	if err != cache.ErrNotFound {
		log.Printf("[SecretStore] WARNING: cache unavailable, reading secret for user %d from store: %v", userID, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil || user.Secret == "" {
		return "", ErrSecretUnavailable
	}

	// Repopulate best-effort; a failed write only costs the next reader a
	// store round trip
	if err := s.cache.SetSecret(ctx, userID, user.Secret); err != nil {
		log.Printf("[SecretStore] WARNING: failed to cache secret for user %d: %v", userID, err)
	}

	return user.Secret, nil
}

// ProvisionSecret generates and persists a first signing secret for a user
// that has none. Unlike RotateSecret nothing is revoked; there are no
// tokens signed with a previous secret.
func (s *SecretStore) ProvisionSecret(ctx context.Context, userID uint) (string, error) {
	secret, err := NewSecret()
	if err != nil {
		return "", err
	}

	if err := s.users.SetSecret(ctx, userID, secret); err != nil {
		return "", fmt.Errorf("persist provisioned secret: %w", err)
	}

	if err := s.cache.SetSecret(ctx, userID, secret); err != nil {
		log.Printf("[SecretStore] WARNING: failed to cache provisioned secret for user %d: %v", userID, err)
	}

	return secret, nil
}

// RotateSecret generates and persists a new secret for the user, recaches
// it, and mass-revokes all tokens signed with the old one. If the persistent
// write fails nothing is revoked; a reader mid-rotation sees either the old
// or the new secret, never a torn state.
func (s *SecretStore) RotateSecret(ctx context.Context, userID uint) (string, error) {
	secret, err := NewSecret()
	if err != nil {
		return "", err
	}

	if err := s.users.SetSecret(ctx, userID, secret); err != nil {
		return "", fmt.Errorf("persist rotated secret: %w", err)
	}

	if err := s.cache.SetSecret(ctx, userID, secret); err != nil {
		log.Printf("[SecretStore] WARNING: failed to cache rotated secret for user %d: %v", userID, err)
	}

	if err := s.registry.RevokeAllForUser(ctx, userID, "secret_rotated"); err != nil {
		// The new secret already invalidates old signatures; the marker
		// covers tokens verified against a stale cached secret
		log.Printf("[SecretStore] WARNING: failed to mass-revoke tokens for user %d after rotation: %v", userID, err)
	}

	return secret, nil
}
