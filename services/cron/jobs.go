package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/stockpilot/inventory-api/model"
)

const (
	// securityEventRetentionDays bounds how long auth telemetry is kept
	securityEventRetentionDays = 90

	// cronLogRetentionDays bounds how long job execution logs are kept
	cronLogRetentionDays = 30

	jobTimeout = 5 * time.Minute
)

// PruneSecurityEvents removes security events past the retention window
func (m *CronManager) PruneSecurityEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	deleted, err := m.events.PruneOlderThan(ctx, securityEventRetentionDays)
	if err != nil {
		m.logJobError("prune_security_events", err)
		return
	}

	m.logJobComplete("prune_security_events",
		fmt.Sprintf("Deleted %d security events older than %d days", deleted, securityEventRetentionDays))
}

// SummarizeLockouts logs how many login lockouts fired in the past hour.
// The summary goes to the job log so operators can spot brute-force waves
// without querying the events table.
func (m *CronManager) SummarizeLockouts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	var lockouts int64
	err := m.db.WithContext(ctx).Model(&model.SecurityEvent{}).
		Where("event_type = ? AND created_at > NOW() - INTERVAL '1 hour'", model.EventLockout).
		Count(&lockouts).Error
	if err != nil {
		m.logJobError("lockout_audit_summary", err)
		return
	}

	var failures int64
	err = m.db.WithContext(ctx).Model(&model.SecurityEvent{}).
		Where("event_type = ? AND created_at > NOW() - INTERVAL '1 hour'", model.EventLoginFailed).
		Count(&failures).Error
	if err != nil {
		m.logJobError("lockout_audit_summary", err)
		return
	}

	m.logJobComplete("lockout_audit_summary",
		fmt.Sprintf("Past hour: %d failed logins, %d lockouts", failures, lockouts))
}

// CleanupCronLogs removes old cron job execution logs
func (m *CronManager) CleanupCronLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result := m.db.WithContext(ctx).Unscoped().
		Where("created_at < NOW() - (? * INTERVAL '1 day')", cronLogRetentionDays).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError("cleanup_cron_logs", result.Error)
		return
	}

	m.logJobComplete("cleanup_cron_logs",
		fmt.Sprintf("Deleted %d cron job logs older than %d days", result.RowsAffected, cronLogRetentionDays))
}
