package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Security event types recorded for auth telemetry
const (
	EventLoginFailed   = "login_failed"
	EventLoginSuccess  = "login_success"
	EventLogout        = "logout"
	EventTokenRevoked  = "token_revoked"
	EventSecretRotated = "secret_rotated"
	EventLockout       = "login_lockout"
)

// SecurityEvent is a persisted record of an authentication-related event.
// Best-effort: writers must not fail the request when the insert fails.
type SecurityEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     *uint          `gorm:"index" json:"user_id,omitempty"`
	EventType  string         `gorm:"type:varchar(50);not null;index" json:"event_type"`
	Identifier string         `gorm:"type:varchar(255);index" json:"identifier"` // IP or username the event is keyed on
	IP         string         `gorm:"type:varchar(45)" json:"ip"`
	UserAgent  string         `gorm:"type:varchar(255)" json:"user_agent"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for SecurityEvent
func (SecurityEvent) TableName() string {
	return "security_events"
}
