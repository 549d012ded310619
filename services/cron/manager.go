package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/stockpilot/inventory-api/model"
	"github.com/stockpilot/inventory-api/services"
	"github.com/stockpilot/inventory-api/utils/cache"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron   *cron.Cron
	db     *gorm.DB
	events *services.EventRecorder
	locks  cache.Store
}

// NewCronManager creates a new cron manager. locks backs the per-job run
// locks so overlapping instances do not execute the same job twice.
func NewCronManager(db *gorm.DB, events *services.EventRecorder, locks cache.Store) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:   c,
		db:     db,
		events: events,
		locks:  locks,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every hour: prune security events past retention
	_, err := m.cron.AddFunc("0 0 * * * *", func() {
		if !m.acquireLock("prune_security_events") {
			return
		}
		m.logJobStart("prune_security_events")
		m.PruneSecurityEvents()
	})
	if err != nil {
		return err
	}

	// 2. Every hour at :15: summarize lockout activity
	_, err = m.cron.AddFunc("0 15 * * * *", func() {
		if !m.acquireLock("lockout_audit_summary") {
			return
		}
		m.logJobStart("lockout_audit_summary")
		m.SummarizeLockouts()
	})
	if err != nil {
		return err
	}

	// 3. Daily at 2 AM: cleanup old cron job logs
	_, err = m.cron.AddFunc("0 0 2 * * *", func() {
		if !m.acquireLock("cleanup_cron_logs") {
			return
		}
		m.logJobStart("cleanup_cron_logs")
		m.CleanupCronLogs()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// acquireLock takes the per-job run lock. The lock holds for the job
// timeout; a lock lookup failure lets the job run so a dead cache does not
// stall maintenance.
func (m *CronManager) acquireLock(jobName string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	acquired, err := m.locks.SetNX(ctx, "cron_lock:"+jobName, "1", jobTimeout)
	if err != nil {
		log.Printf("[CRON] WARNING: run lock lookup failed for %s, running anyway: %v", jobName, err)
		return true
	}
	if !acquired {
		log.Printf("[CRON] Skipping %s: another instance holds the run lock", jobName)
	}
	return acquired
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&cronLog)
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now(),
			"message":      message,
		})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "failed",
			"completed_at": time.Now(),
			"error_msg":    err.Error(),
		})
}
