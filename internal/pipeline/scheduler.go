package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner performs one ingestion pass.
type Runner interface {
	RunOnce(ctx context.Context) (int, error)
}

// Scheduler triggers ingestion passes on a cron schedule. A pass that is
// still running when the next one is due causes that tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	runner Runner
	logger *slog.Logger
}

// NewScheduler parses a standard five-field cron spec or a descriptor such
// as "@every 5m".
func NewScheduler(spec string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("ingest schedule %q: %w", spec, err)
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		spec:   spec,
		runner: runner,
		logger: logger,
	}, nil
}

// Run performs an immediate pass, then follows the schedule until ctx is
// cancelled. It returns after any in-flight pass has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("ingest scheduler started", "schedule", s.spec)
	s.pass(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.pass(ctx) }); err != nil {
		return fmt.Errorf("schedule ingestion: %w", err)
	}
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("ingest scheduler stopping", "reason", ctx.Err())
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Error("ingestion pass had failures", "error", err)
	}
}
