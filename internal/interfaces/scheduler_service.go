package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// SchedulerStatus reports the state of the pipeline trigger
type SchedulerStatus struct {
	Schedule   string
	Running    bool
	LastRun    *time.Time
	NextRun    *time.Time
	LastResult *models.RunResult
}

// SchedulerService triggers pipeline runs on a cron schedule
type SchedulerService interface {
	// Start the scheduler with a cron expression
	Start(cronExpr string) error

	// Stop the scheduler, waiting for an in-flight run to observe cancellation
	Stop() error

	// TriggerNow runs the pipeline immediately on the calling goroutine
	TriggerNow(ctx context.Context) models.RunResult

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// Status returns the schedule and the outcome of the last run
	Status() SchedulerStatus
}
