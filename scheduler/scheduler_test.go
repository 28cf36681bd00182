package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingEngine struct {
	calls int32
	err   error
}

func (e *countingEngine) Tick(ctx context.Context) error {
	atomic.AddInt32(&e.calls, 1)
	return e.err
}

func TestSchedulerRunsImmediatelyAtStartup(t *testing.T) {
	e := &countingEngine{}
	s := New(time.Hour, e)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.EqualValues(t, 1, atomic.LoadInt32(&e.calls))
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	s := New(0)
	assert.Equal(t, 2*time.Minute, s.Interval)
}

func TestSchedulerContinuesAfterEngineError(t *testing.T) {
	e := &countingEngine{err: assertSchedErr("boom")}
	s := New(5 * time.Millisecond, e)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&e.calls), int32(2))
}

type assertSchedErr string

func (e assertSchedErr) Error() string { return string(e) }
