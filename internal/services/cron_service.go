package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds a single scheduled run
const jobTimeout = 5 * time.Minute

// HoldExpirer cancels reservations whose hold ran out
type HoldExpirer interface {
	RunOnce(ctx context.Context) (int, error)
}

// VerificationCleaner purges stale verification state
type VerificationCleaner interface {
	CleanupUnverified(ctx context.Context) (*CleanupResult, error)
}

// CronSchedules holds the cron specs (with seconds) of the background jobs
type CronSchedules struct {
	HoldExpiry          string
	VerificationCleanup string
}

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	schedules CronSchedules
	expirer   HoldExpirer
	cleaner   VerificationCleaner
	logger    *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(schedules CronSchedules, expirer HoldExpirer, cleaner VerificationCleaner, logger *logrus.Logger) *CronService {
	// Cron format: second minute hour day month weekday
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &CronService{
		cron:      c,
		schedules: schedules,
		expirer:   expirer,
		cleaner:   cleaner,
		logger:    logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if _, err := s.cron.AddFunc(s.schedules.HoldExpiry, s.expireHoldsJob); err != nil {
		return fmt.Errorf("failed to schedule hold expiry job: %w", err)
	}
	s.logger.WithField("schedule", s.schedules.HoldExpiry).Info("✓ Scheduled: Expire reservation holds")

	if _, err := s.cron.AddFunc(s.schedules.VerificationCleanup, s.cleanupVerificationJob); err != nil {
		return fmt.Errorf("failed to schedule verification cleanup job: %w", err)
	}
	s.logger.WithField("schedule", s.schedules.VerificationCleanup).Info("✓ Scheduled: Cleanup unverified users")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

func (s *CronService) expireHoldsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	startTime := time.Now()
	expired, err := s.expirer.RunOnce(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to expire reservation holds")
		return
	}
	if expired > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired":  expired,
			"duration": time.Since(startTime),
		}).Info("[CRON] ✓ Expired reservation holds")
	}
}

func (s *CronService) cleanupVerificationJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	startTime := time.Now()
	result, err := s.cleaner.CleanupUnverified(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cleanup verification data")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"users":       result.Users,
		"sessions":    result.Sessions,
		"rate_limits": result.RateLimits,
		"duration":    time.Since(startTime),
	}).Info("[CRON] ✓ Cleaned up verification data")
}

// RunExpireHoldsNow runs the hold expiry job immediately
func (s *CronService) RunExpireHoldsNow() {
	s.logger.Info("[MANUAL] Running hold expiry now...")
	s.expireHoldsJob()
}

// RunVerificationCleanupNow runs the verification cleanup job immediately
func (s *CronService) RunVerificationCleanupNow() {
	s.logger.Info("[MANUAL] Running verification cleanup now...")
	s.cleanupVerificationJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
