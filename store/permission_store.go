package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/stockpilot/inventory-api/model"
)

// GormPermissionStore implements PermissionStore over GORM/postgres
type GormPermissionStore struct {
	db *gorm.DB
}

// NewGormPermissionStore creates a GORM-backed permission store
func NewGormPermissionStore(db *gorm.DB) *GormPermissionStore {
	return &GormPermissionStore{db: db}
}

// GetRolesAndPermissions loads the user's roles with their permissions and
// flattens both to deduplicated code lists
func (s *GormPermissionStore) GetRolesAndPermissions(ctx context.Context, userID uint) ([]string, []string, error) {
	var user model.User
	if err := s.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, userID).Error; err != nil {
		return nil, nil, err
	}

	roles := make([]string, 0, len(user.Roles))
	permSet := make(map[string]struct{})
	perms := make([]string, 0)

	for _, role := range user.Roles {
		roles = append(roles, role.Code)
		for _, perm := range role.Permissions {
			if _, seen := permSet[perm.Code]; seen {
				continue
			}
			permSet[perm.Code] = struct{}{}
			perms = append(perms, perm.Code)
		}
	}

	return roles, perms, nil
}
