package utils

import (
	"log"
	"os"
	"time"
)

// AuditLogger appends security-relevant events to a dedicated audit file,
// separate from the request log stream.
type AuditLogger struct {
	logger *log.Logger
}

func NewAuditLogger(path string) *AuditLogger {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open audit log file: %v", err)
	}
	return &AuditLogger{
		logger: log.New(file, "", 0),
	}
}

// Log writes one timestamped audit line
func (l *AuditLogger) Log(eventType, identifier, detail string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf("[%s] %s identifier=%s %s\n", timestamp, eventType, identifier, detail)
}
