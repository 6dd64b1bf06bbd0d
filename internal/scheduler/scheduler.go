// Package scheduler runs periodic batch jobs on cron schedules. When a
// Locker is configured, each run first takes a distributed lock so only one
// replica executes a given job at a time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	lockTTL time.Duration
	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New returns a scheduler. locker may be nil, in which case every replica
// runs every job.
func New(logger *logrus.Logger, locker Locker, lockTTL time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under name with a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": spec,
	}).Info("Scheduled job registered")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(name string, job Job) {
	logger := s.logger.WithField("job", name)

	jobCtx := s.ctx
	if s.locker != nil {
		lockCtx, release, acquired, err := s.locker.TryLock(s.ctx, "lock:job:"+name, s.lockTTL)
		if err != nil {
			logger.WithError(err).Warn("Failed to acquire job lock, skipping run")
			return
		}
		if !acquired {
			logger.Debug("Job is running on another instance, skipping run")
			return
		}
		defer release()
		jobCtx = lockCtx
	}

	start := time.Now()
	err := job(jobCtx)
	if jobCtx.Err() != nil && s.ctx.Err() == nil {
		logger.Warn("Job lock was lost during the run")
	}
	if err != nil {
		logger.WithError(err).WithField("duration", time.Since(start)).Error("Scheduled job failed")
		return
	}
	logger.WithField("duration", time.Since(start)).Info("Scheduled job completed")
}
