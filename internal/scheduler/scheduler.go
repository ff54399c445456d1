package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-features/internal/metrics"
)

// JobFunc is a scheduled unit of work
type JobFunc func(ctx context.Context) error

// Scheduler runs jobs on cron expressions in UTC. A job still running when
// its next tick arrives is skipped for that tick.
type Scheduler struct {
	cron            *cron.Cron
	logger          logrus.FieldLogger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. jobTimeout bounds each run; zero
// means no bound.
func NewScheduler(logger logrus.FieldLogger, jobTimeout time.Duration) *Scheduler {
	logger = logger.WithField("component", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
		),
		logger:          logger,
		jobIDs:          make(map[string]cron.EntryID),
		jobTimeout:      jobTimeout,
		gracefulTimeout: 30 * time.Second,
	}
}

// Schedule registers job under name with a standard five-field cron
// expression or a descriptor such as "@every 1h".
func (s *Scheduler) Schedule(name, cronExpression string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, ok := s.jobIDs[name]; ok {
		return fmt.Errorf("job %s is already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs[name] = entryID
	s.logger.Infof("Scheduled %s job with cron expression: %s", name, cronExpression)
	return nil
}

func (s *Scheduler) run(name string, job JobFunc) {
	ctx := context.Background()
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Infof("Starting scheduled %s", name)
	if err := job(ctx); err != nil {
		metrics.RecordRun(name, "failed")
		s.logger.WithError(err).Errorf("Error during scheduled %s", name)
		return
	}
	metrics.RecordRun(name, "success")
	s.logger.Infof("Scheduled %s completed in %.2fs", name, time.Since(start).Seconds())
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Infof("Scheduler started with %d jobs", len(s.jobIDs))

	return nil
}

// Stop stops the scheduler and waits for running jobs, up to the graceful
// timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	done := s.cron.Stop()
	s.isRunning = false
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s with jobs still running", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the earliest upcoming run, or the zero time when stopped
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	var next time.Time
	for _, id := range s.jobIDs {
		entry := s.cron.Entry(id)
		if entry.Valid() && (next.IsZero() || entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}

// Remove unschedules the job registered under name
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}
	id, ok := s.jobIDs[name]
	if !ok {
		return fmt.Errorf("job %s is not scheduled", name)
	}

	s.cron.Remove(id)
	delete(s.jobIDs, name)
	s.logger.Infof("Removed job: %s", name)
	return nil
}

// cronLogger routes cron's own messages to logrus
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	out := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
