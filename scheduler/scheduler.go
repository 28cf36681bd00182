// Package scheduler implements the periodic ticker that fires the wrap and
// unwrap engines at a fixed interval, plus an immediate startup
// reconciliation pass before entering the loop.
package scheduler

import (
	"context"
	"time"

	"github.com/bridgefoundry/wbtc-bridge/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleScheduler)

// Engine is the common shape of WrapEngine/UnwrapEngine as consumed by the
// scheduler; kept narrow so the scheduler never needs to import engine
// types directly.
type Engine interface {
	Tick(ctx context.Context) error
}

// Scheduler fires every registered engine once per tick, with one extra tick
// run immediately at startup.
type Scheduler struct {
	Interval time.Duration
	Engines  []Engine
}

// New builds a scheduler with a sanitized interval; a non-positive interval
// falls back to a default of 2 minutes.
func New(interval time.Duration, engines ...Engine) *Scheduler {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Scheduler{Interval: interval, Engines: engines}
}

// Run blocks until ctx is cancelled, running one reconciliation pass
// immediately and then one pass per tick of Interval. It drains the
// in-flight pass before returning on cancellation.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	for i, e := range s.Engines {
		if err := e.Tick(ctx); err != nil {
			logger.Error("engine tick failed", "engine_index", i, "err", err)
		}
	}
}
