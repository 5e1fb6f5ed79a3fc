// Package scheduler runs audit passes on a cron cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
)

// PassRunner executes one audit pass.
type PassRunner interface {
	RunPass(ctx context.Context) (*domain.PassReport, error)
}

// Scheduler triggers PassRunner on a schedule. A pass that is still running
// when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner PassRunner
	logger *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New parses the cron expression and registers the pass job. Invalid
// expressions wrap ErrConfig.
func New(expr string, runner PassRunner, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w: %w", expr, app_errors.ErrConfig, err)
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		runner: runner,
		logger: logger,
		ctx:    context.Background(),
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.runOnce))
	return s, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running pass to return. Cancelling ctx also cancels the running pass.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoContext(ctx, "audit schedule started", "next_run", s.cron.Entries()[0].Next)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("audit schedule stopped")
	return nil
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	report, err := s.runner.RunPass(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled pass failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "scheduled pass finished",
		"pass_id", report.ID,
		"hosts", report.Hosts,
		"failed_hosts", report.FailedHosts(),
	)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
