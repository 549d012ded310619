package services

import (
	"context"
	"encoding/json"
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/utils"
)

// EventRecorder persists security telemetry. Recording is always
// best-effort: a failed write is logged and never fails the request that
// produced the event.
type EventRecorder struct {
	db    *gorm.DB
	audit *utils.AuditLogger
}

// NewEventRecorder creates a security event recorder
func NewEventRecorder(db *gorm.DB, audit *utils.AuditLogger) *EventRecorder {
	return &EventRecorder{db: db, audit: audit}
}

// Record persists one security event and mirrors it to the audit log
func (r *EventRecorder) Record(ctx context.Context, userID *uint, eventType, identifier, ip, userAgent string, metadata map[string]interface{}) {
	var meta datatypes.JSON
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("[SecurityEvents] ERROR: failed to encode metadata for %s event: %v", eventType, err)
		} else {
			meta = datatypes.JSON(raw)
		}
	}

	event := model.SecurityEvent{
		UserID:     userID,
		EventType:  eventType,
		Identifier: identifier,
		IP:         ip,
		UserAgent:  userAgent,
		Metadata:   meta,
	}

	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		log.Printf("[SecurityEvents] ERROR: failed to persist %s event for %s: %v", eventType, identifier, err)
	}

	if r.audit != nil {
		r.audit.Log(eventType, identifier, "ip="+ip)
	}
}

// PruneOlderThan removes security events past the retention window and
// returns the number of rows deleted
func (r *EventRecorder) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < NOW() - (? * INTERVAL '1 day')", days).
		Delete(&model.SecurityEvent{})
	return result.RowsAffected, result.Error
}

var _ SecurityEventSink = (*EventRecorder)(nil)
