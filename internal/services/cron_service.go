package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	rentalSvc *RentalService
	schedule  string
	logger    *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(rentalSvc *RentalService, schedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:      cron.New(),
		rentalSvc: rentalSvc,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Stale pending rentals occupy their date ranges until this sweep
	// expires them
	_, err := s.cron.AddFunc(s.schedule, s.expireStalePendingJob)
	if err != nil {
		return fmt.Errorf("failed to schedule stale pending sweep: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: expire stale pending rentals")

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops all cron jobs and waits for running jobs to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// expireStalePendingJob frees date ranges held by abandoned bookings
func (s *CronService) expireStalePendingJob() {
	startTime := time.Now()

	expired, err := s.rentalSvc.ExpireStalePending()
	if err != nil {
		s.logger.WithError(err).Error("Stale pending sweep failed")
		return
	}

	if expired > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired":  expired,
			"duration": time.Since(startTime).String(),
		}).Info("Expired stale pending rentals")
	}
}
