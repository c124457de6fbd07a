// Package scheduler runs periodic maintenance jobs such as reloading the
// catalog from its repository.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"internship-matcher/internal/shared/telemetry"
)

// Scheduler wraps robfig/cron. Overlapping runs of one job are skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New creates a scheduler whose jobs run with ctx.
func New(ctx context.Context) *Scheduler {
	logger := cron.PrintfLogger(telemetry.Logger())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx: ctx,
	}
}

// Add registers fn under spec, e.g. "@every 5m" or "*/10 * * * *".
func (s *Scheduler) Add(name, spec string, fn func(context.Context) error) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	telemetry.Info("scheduler.registered", map[string]any{"job": name, "spec": spec})
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		telemetry.Warn("scheduler.stop_timeout", nil)
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := fn(s.ctx); err != nil {
		telemetry.Error("scheduler.job_failed", map[string]any{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	telemetry.Debug("scheduler.job_done", map[string]any{
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
