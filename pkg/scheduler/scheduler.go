package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is run by the scheduler every Interval.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
}

func NewScheduler(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start runs each job on its own ticker until ctx is done. Jobs with a
// non-positive interval are skipped.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		if job.Interval() <= 0 {
			logrus.WithField("job", job.Name()).Warn("Job has no interval, not scheduled")
			continue
		}

		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait blocks until every job loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	log := logrus.WithField("job", job.Name())
	log.WithField("interval", job.Interval()).Info("Job started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Job stopped")
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				log.WithError(err).Error("Job run failed")
			}
		}
	}
}
