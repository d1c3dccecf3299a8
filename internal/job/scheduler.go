package job

import (
	"context"

	"github.com/copiqat-backend/internal/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the price refresh job on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	job      *PriceRefreshJob
	schedule string
	logger   *logging.Logger
}

// NewScheduler creates a scheduler for the price refresh job
func NewScheduler(job *PriceRefreshJob, schedule string, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		job:      job,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the refresh job and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx := logging.WithLogger(context.Background(), s.logger)
		if err := s.job.RunScheduled(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled price refresh failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Price refresh scheduler started")
	return nil
}

// Stop stops the cron loop, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Price refresh scheduler stopped")
}
