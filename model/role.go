package model

import (
	"time"

	"gorm.io/gorm"
)

// Role groups permissions under a single assignable code
type Role struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Code      string         `gorm:"uniqueIndex;type:varchar(50);not null" json:"code"`
	Name      string         `gorm:"type:varchar(100);not null" json:"name"`

	// Relationships
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// TableName specifies the table name for Role
func (Role) TableName() string {
	return "roles"
}

// Permission is a single grantable capability, identified by code
type Permission struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Code      string         `gorm:"uniqueIndex;type:varchar(100);not null" json:"code"`
	Name      string         `gorm:"type:varchar(100);not null" json:"name"`
}

// TableName specifies the table name for Permission
func (Permission) TableName() string {
	return "permissions"
}
