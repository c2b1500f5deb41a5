package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chankeeper/chankeeper/internal/scheduler"
)

type sweeperStub struct {
	calls atomic.Int32
}

func (s *sweeperStub) Sweep(context.Context) int {
	s.calls.Add(1)
	return 1
}

type rollerStub struct {
	calls atomic.Int32
}

func (r *rollerStub) Rollover(context.Context, time.Time) bool {
	r.calls.Add(1)
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsSweepAndRollover(t *testing.T) {
	sweeper := &sweeperStub{}
	roller := &rollerStub{}

	s := scheduler.NewScheduler(sweeper, roller, 50*time.Millisecond, testLogger())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2 && roller.calls.Load() >= 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestScheduler_StopHaltsTicks(t *testing.T) {
	sweeper := &sweeperStub{}
	roller := &rollerStub{}

	s := scheduler.NewScheduler(sweeper, roller, 30*time.Millisecond, testLogger())

	s.Start()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)

	s.Stop()

	after := sweeper.calls.Load()
	time.Sleep(150 * time.Millisecond)

	assert.LessOrEqual(t, sweeper.calls.Load(), after+1, "at most one in-flight tick after Stop")
}
