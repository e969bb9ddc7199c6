package trigger

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/logger/api"
)

// Sweepable is satisfied by *accounting.Accountant.
type Sweepable interface {
	RecomputeAll(ctx context.Context) (accounting.SweepResult, error)
}

// Sweeper recomputes every tenant once per interval.
type Sweeper struct {
	acct     Sweepable
	interval time.Duration
	clock    clock.Clock
	log      api.Logger
}

func NewSweeper(acct Sweepable, interval time.Duration, clk clock.Clock, log api.Logger) *Sweeper {
	if clk == nil {
		clk = clock.New()
	}
	return &Sweeper{
		acct:     acct,
		interval: interval,
		clock:    clk,
		log:      api.OrDefault(log).WithComponent("trigger.sweeper"),
	}
}

// Run blocks until ctx is done. A sweep still running when the next tick
// arrives delays that tick rather than overlapping it.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.log.Info(ctx, "sweeper started", api.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			res, err := s.acct.RecomputeAll(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Error(ctx, "storage sweep failed", err)
				continue
			}
			if res.Failed > 0 {
				s.log.Warn(ctx, "storage sweep had failures",
					api.Int("failed", res.Failed), api.Int("tenants", res.Tenants))
			}
		}
	}
}
