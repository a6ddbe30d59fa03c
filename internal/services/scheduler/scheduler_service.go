// Package scheduler triggers pipeline runs from a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// DefaultSchedule runs the pipeline every six hours
const DefaultSchedule = "0 */6 * * *"

// Service implements SchedulerService interface
type Service struct {
	runner  interfaces.PipelineRunner
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex // Protects the fields below
	running bool
	entryID cron.EntryID
	cronExp string
	lastRun *time.Time
	last    *models.RunResult
	ctx     context.Context
	cancel  context.CancelFunc
}

// Compile-time interface assertion
var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates a new scheduler service
func NewService(runner interfaces.PipelineRunner, logger arbor.ILogger) *Service {
	return &Service{
		runner: runner,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start begins the scheduler with the given cron expression
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if cronExpr == "" {
		cronExpr = DefaultSchedule
	}

	id, err := s.cron.AddFunc(cronExpr, s.tick)
	if err != nil {
		return &interfaces.ConfigurationError{Key: "scheduler.schedule", Message: err.Error()}
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.entryID = id
	s.cronExp = cronExpr
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Str("next_run", s.cron.Entry(id).Schedule.Next(time.Now()).Format(time.RFC3339)).
		Msg("Scheduler started")

	return nil
}

// Stop halts the scheduler. An in-flight run is cancelled and waited for.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cron.Remove(s.entryID)
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// TriggerNow runs the pipeline immediately. Overlapping runs are skipped by
// the pipeline's own run guard.
func (s *Service) TriggerNow(ctx context.Context) models.RunResult {
	return s.execute(ctx, "manual")
}

// IsRunning returns true if the cron loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the schedule and the outcome of the last run
func (s *Service) Status() interfaces.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := interfaces.SchedulerStatus{
		Schedule:   s.cronExp,
		Running:    s.running,
		LastRun:    s.lastRun,
		LastResult: s.last,
	}
	if s.running {
		if entry := s.cron.Entry(s.entryID); entry.Schedule != nil {
			next := entry.Schedule.Next(time.Now())
			status.NextRun = &next
		}
	}
	return status
}

// tick is the cron callback
func (s *Service) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	s.execute(ctx, "cron")
}

func (s *Service) execute(ctx context.Context, trigger string) (result models.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("trigger", trigger).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled run")
			result = models.RunResult{Status: models.RunStatusAborted, Message: fmt.Sprintf("panic: %v", r)}
		}
		s.record(result)
	}()

	s.logger.Info().Str("trigger", trigger).Msg("Pipeline run triggered")
	result = s.runner.Run(ctx)

	s.logger.Info().
		Str("trigger", trigger).
		Str("status", string(result.Status)).
		Str("stage", result.Stage).
		Dur("duration", result.Duration).
		Msg("Pipeline run finished")
	return result
}

func (s *Service) record(result models.RunResult) {
	if result.Status == models.RunStatusSkipped {
		return
	}
	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.last = &result
	s.mu.Unlock()
}
