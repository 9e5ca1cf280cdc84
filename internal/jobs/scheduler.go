// Package jobs runs the periodic maintenance work: the daily challenge and
// streak sweep and the retry of reward credits that failed to deliver.
package jobs

import (
	"context"
	"fmt"
	"time"

	"challenge-goals-go/internal/clock"
	"challenge-goals-go/internal/metrics"
	"challenge-goals-go/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the part of the challenge engine the scheduler drives.
type Sweeper interface {
	SweepExpiredChallengesAndStreaks(ctx context.Context, today time.Time) (models.SweepReport, error)
	DeliverPendingRewards(ctx context.Context, challengeId string, limit int) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	clock   clock.Clock
	cfg     models.SchedulerConfig
	loc     *time.Location
}

// NewScheduler builds a scheduler whose cron expressions are read in loc.
func NewScheduler(sweeper Sweeper, clk clock.Clock, cfg models.SchedulerConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		clock:   clk,
		cfg:     cfg,
		loc:     loc,
	}
}

// Start registers the jobs and starts the cron loop. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, func() {
		zap.L().Info("Running scheduled sweep")
		if _, err := s.RunSweep(ctx); err != nil {
			zap.L().Error("Scheduled sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.SweepSchedule, err)
	}

	if s.cfg.RewardRetrySchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.RewardRetrySchedule, func() {
			zap.L().Debug("Retrying pending reward credits")
			if _, err := s.RetryRewards(ctx); err != nil {
				zap.L().Warn("Reward retry incomplete", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("invalid reward retry schedule %q: %w", s.cfg.RewardRetrySchedule, err)
		}
	}

	s.cron.Start()
	zap.L().Info("Scheduler started",
		zap.String("sweep_schedule", s.cfg.SweepSchedule),
		zap.String("reward_retry_schedule", s.cfg.RewardRetrySchedule),
		zap.String("location", s.loc.String()))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("Scheduler stopped")
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// RunSweep runs one sweep for the clock's current date.
func (s *Scheduler) RunSweep(ctx context.Context) (models.SweepReport, error) {
	start := time.Now()
	report, err := s.sweeper.SweepExpiredChallengesAndStreaks(ctx, s.clock.Today())
	observe("sweep", start, err)
	return report, err
}

// RetryRewards delivers up to the configured batch of pending reward credits.
func (s *Scheduler) RetryRewards(ctx context.Context) (int, error) {
	start := time.Now()
	delivered, err := s.sweeper.DeliverPendingRewards(ctx, "", s.cfg.RewardRetryBatch)
	observe("reward_retry", start, err)
	if delivered > 0 {
		zap.L().Info("Pending reward credits delivered", zap.Int("count", delivered))
	}
	return delivered, err
}

func observe(job string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.SweepDuration.WithLabelValues(job, result).Observe(time.Since(start).Seconds())
}
