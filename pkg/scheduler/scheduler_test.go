package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	interval time.Duration
	runs     int32
	err      error
}

func (j *countingJob) Name() string            { return "counting" }
func (j *countingJob) Interval() time.Duration { return j.interval }

func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func TestSchedulerRunsJobsUntilCancelled(t *testing.T) {
	ok := &countingJob{interval: 5 * time.Millisecond}
	failing := &countingJob{interval: 5 * time.Millisecond, err: errors.New("boom")}
	disabled := &countingJob{}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ok, failing, disabled)
	s.Start(ctx)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ok.runs) >= 2 && atomic.LoadInt32(&failing.runs) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()

	assert.Zero(t, atomic.LoadInt32(&disabled.runs))
}
