package maintenance

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/opendata-nc/registre/pkg/observability"
)

// Scheduler runs the periodic maintenance jobs
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// NewScheduler creates a scheduler whose jobs recover from panics and never
// overlap with themselves
func NewScheduler(logger *observability.Logger) *Scheduler {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	cronLog := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(
				cron.Recover(cronLog),
				cron.SkipIfStillRunning(cronLog),
			),
		),
		logger: logger,
	}
}

// Add schedules job with a standard cron spec or a descriptor such as
// "@daily" or "@every 15s"
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": spec,
	}).Info("Maintenance job scheduled")
	return nil
}

// Len returns the number of scheduled jobs
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("maintenance jobs still running: %w", ctx.Err())
	}
}

// cronLogger adapts observability.Logger to cron.Logger
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
