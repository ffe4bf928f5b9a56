// Package scheduler runs the periodic maintenance jobs of the server.
package scheduler

import (
	"context"
	"time"

	"example.com/ecoguard/internal/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	SweepSessions(ctx context.Context) (int, error)
	CheckLiveness(ctx context.Context) (bool, error)
}

// Config sets the job intervals. A non-positive interval disables its job.
type Config struct {
	SessionSweepInterval time.Duration
	LivenessInterval     time.Duration
}

// Scheduler wraps a gocron scheduler with the server's jobs registered
type Scheduler struct {
	cron gocron.Scheduler
	log  *logrus.Logger
}

// New registers the jobs. ctx is handed to every run and should outlive the scheduler.
func New(ctx context.Context, jobs Jobs, cfg Config, log *logrus.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduler")
	}
	s := &Scheduler{cron: cron, log: log}

	if cfg.SessionSweepInterval > 0 {
		_, err = cron.NewJob(
			gocron.DurationJob(cfg.SessionSweepInterval),
			gocron.NewTask(func() {
				n, err := jobs.SweepSessions(ctx)
				if err != nil {
					log.WithError(err).Error("Session sweep failed")
					return
				}
				metrics.SessionsSweptTotal.Add(float64(n))
				if n > 0 {
					log.WithField("removed", n).Info("Swept expired sessions")
				}
			}),
			gocron.WithName("session-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to schedule session sweep")
		}
	}

	if cfg.LivenessInterval > 0 {
		_, err = cron.NewJob(
			gocron.DurationJob(cfg.LivenessInterval),
			gocron.NewTask(func() {
				if _, err := jobs.CheckLiveness(ctx); err != nil {
					log.WithError(err).Warn("Liveness check failed")
				}
			}),
			gocron.WithName("device-liveness"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to schedule liveness monitor")
		}
	}

	return s, nil
}

// Run starts the jobs and blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.WithField("jobs", len(s.cron.Jobs())).Info("Starting scheduler")
	s.cron.Start()

	<-ctx.Done()

	s.log.Info("Stopping scheduler")
	return s.cron.Shutdown()
}
