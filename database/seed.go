package database

import (
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/utils/auth"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedRolesAndPermissions(); err != nil {
		return fmt.Errorf("failed to seed roles and permissions: %w", err)
	}

	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// defaultRoles maps role codes to the permission codes they grant
var defaultRoles = map[string]struct {
	Name        string
	Permissions []string
}{
	"admin": {
		Name: "Administrator",
		Permissions: []string{
			"inventory:read", "inventory:write",
			"orders:read", "orders:write",
			"users:read", "users:write",
			"security:read",
		},
	},
	"manager": {
		Name: "Store Manager",
		Permissions: []string{
			"inventory:read", "inventory:write",
			"orders:read", "orders:write",
		},
	},
	"clerk": {
		Name: "Sales Clerk",
		Permissions: []string{
			"inventory:read",
			"orders:read", "orders:write",
		},
	},
}

var permissionNames = map[string]string{
	"inventory:read":  "View inventory",
	"inventory:write": "Modify inventory",
	"orders:read":     "View orders",
	"orders:write":    "Create and modify orders",
	"users:read":      "View users",
	"users:write":     "Manage users",
	"security:read":   "View security events",
}

// SeedRolesAndPermissions creates the default roles with their permissions
func (s *Seeder) SeedRolesAndPermissions() error {
	perms := make(map[string]*model.Permission)
	for code, name := range permissionNames {
		perm := model.Permission{Code: code, Name: name}
		if err := s.db.Where("code = ?", code).FirstOrCreate(&perm).Error; err != nil {
			return err
		}
		perms[code] = &perm
	}

	for code, def := range defaultRoles {
		role := model.Role{Code: code, Name: def.Name}
		if err := s.db.Where("code = ?", code).FirstOrCreate(&role).Error; err != nil {
			return err
		}

		grant := make([]model.Permission, 0, len(def.Permissions))
		for _, permCode := range def.Permissions {
			grant = append(grant, *perms[permCode])
		}
		if err := s.db.Model(&role).Association("Permissions").Replace(grant); err != nil {
			return err
		}
	}

	log.Printf("⏭️  Seeded %d roles and %d permissions", len(defaultRoles), len(permissionNames))
	return nil
}

// SeedAdminUser creates the default admin user with a fresh signing secret
func (s *Seeder) SeedAdminUser() error {
	// Check if an admin already exists
	var count int64
	if err := s.db.Model(&model.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.code = ?", "admin").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin user already exists, skipping...")
		return nil
	}

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_USERNAME and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	secret, err := auth.NewSecret()
	if err != nil {
		return err
	}

	var adminRole model.Role
	if err := s.db.Where("code = ?", "admin").First(&adminRole).Error; err != nil {
		return err
	}

	admin := model.User{
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Secret:       secret,
		IsActive:     true,
		Roles:        []model.Role{adminRole},
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin user %q", adminUsername)
	return nil
}
