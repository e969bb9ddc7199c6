package trigger_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bignyap/studio-storage/trigger"
	"github.com/stretchr/testify/assert"
)

func TestSweeperRunsEachInterval(t *testing.T) {
	acct := newRecomputer()
	clk := clock.NewMock()
	s := trigger.NewSweeper(acct, time.Hour, clk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		clk.Add(time.Hour)
		return acct.sweeps() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSweeperDisabled(t *testing.T) {
	acct := newRecomputer()
	clk := clock.NewMock()
	s := trigger.NewSweeper(acct, 0, clk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clk.Add(24 * time.Hour)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Zero(t, acct.sweeps())
}
