// Package jobs runs the StudyBuddy background jobs on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/studybuddy/studybuddy-api/internal/logger"
	"github.com/studybuddy/studybuddy-api/internal/metrics"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work. The context is cancelled after the scheduler's timeout.
type Job func(ctx context.Context) error

// Scheduler manages background jobs using cron scheduling.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
	jobs    map[string]cron.EntryID
}

// NewScheduler creates a scheduler whose expressions include a seconds field.
// Each run gets at most timeout to finish.
func NewScheduler(log *zap.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		logger:  log,
		timeout: timeout,
		jobs:    make(map[string]cron.EntryID),
	}
}

// Start starts the scheduler. Jobs added before this call will begin running.
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler")
	s.cron.Start()
}

// Stop stops the scheduler; the returned context is done once running jobs complete.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	return s.cron.Stop()
}

// AddJob registers job under name.
// Examples of cronExpr:
//   - "0 */5 * * * *" - every five minutes
//   - "@every 10m"    - every ten minutes
func (s *Scheduler) AddJob(name string, cronExpr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.Run(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("added scheduled job",
		zap.String("job_name", name),
		zap.String("cron_expr", cronExpr))

	return nil
}

// Run executes job once with the scheduler's timeout, logging and recording the outcome
func (s *Scheduler) Run(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	duration := time.Since(start)
	metrics.RecordJobRun(name, duration, err == nil)

	log := logger.ForJob(s.logger, name)
	if err != nil {
		log.Error("scheduled job failed", zap.Duration("duration", duration), zap.Error(err))
		return err
	}

	log.Debug("completed scheduled job", zap.Duration("duration", duration))
	return nil
}

// RemoveJob removes a job by name.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(entryID)
	delete(s.jobs, name)

	s.logger.Info("removed scheduled job",
		zap.String("job_name", name))

	return nil
}

// GetJobNames returns the names of all registered jobs.
func (s *Scheduler) GetJobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}
