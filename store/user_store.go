package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/utils/auth"
)

// UserStore is the persistence boundary for user records. Handlers and
// services depend on this interface; tests substitute in-memory fakes.
type UserStore interface {
	GetByID(ctx context.Context, userID uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	SetSecret(ctx context.Context, userID uint, secret string) error
	VerifyCredentials(ctx context.Context, username, password string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, userID uint) error
}

// PermissionStore resolves the role and permission codes embedded in
// token claims
type PermissionStore interface {
	GetRolesAndPermissions(ctx context.Context, userID uint) ([]string, []string, error)
}

// GormUserStore implements UserStore over GORM/postgres
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore creates a GORM-backed user store
func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

// GetByID fetches a user by primary key. Returns auth.ErrUserNotFound when
// no row exists.
func (s *GormUserStore) GetByID(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername fetches a user by username
func (s *GormUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetSecret persists a new signing secret for the user
func (s *GormUserStore) SetSecret(ctx context.Context, userID uint, secret string) error {
	result := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("secret", secret)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// VerifyCredentials checks username/password. The same
// auth.ErrInvalidCredentials comes back for unknown users and wrong
// passwords so responses cannot be used to enumerate accounts.
func (s *GormUserStore) VerifyCredentials(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	return user, nil
}

// UpdateLastLogin stamps the user's last successful login time
func (s *GormUserStore) UpdateLastLogin(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login_at", gorm.Expr("NOW()")).Error
}
