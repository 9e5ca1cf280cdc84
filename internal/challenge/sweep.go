package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"challenge-goals-go/internal/metrics"
	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"
	"challenge-goals-go/internal/streak"

	"go.uber.org/zap"
)

// RecordActivity applies staleness to one participant's streak. It reports
// whether the streak was marked inactive by this call.
func (e *Engine) RecordActivity(ctx context.Context, participantId string) (bool, error) {
	if _, err := e.store.GetParticipantById(ctx, participantId); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, &Error{Kind: NotFound, Reason: ErrParticipantNotFound, Err: err}
		}
		return false, fmt.Errorf("failed to load participant: %w", err)
	}

	s, err := e.store.GetStreakByParticipant(ctx, participantId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, &Error{Kind: NotFound, Reason: ErrStreakNotFound, Err: err}
		}
		return false, fmt.Errorf("failed to load streak: %w", err)
	}

	return e.expireStreak(ctx, *s, e.clock.Today())
}

// expireStreak only ever moves a streak from active to inactive. The guarded
// update loses to a contribution that landed after s was read.
func (e *Engine) expireStreak(ctx context.Context, s models.ChallengeStreak, today time.Time) (bool, error) {
	if _, flipped := streak.CheckAndExpire(s, today); !flipped {
		return false, nil
	}

	changed, err := e.store.DeactivateStreak(ctx, s.Id, streak.ExpiryCutoff(today))
	if err != nil {
		return false, fmt.Errorf("failed to deactivate streak %s: %w", s.Id, err)
	}
	if changed {
		metrics.StreaksExpired.Inc()
		zap.L().Debug("Streak expired",
			zap.String("streak_id", s.Id),
			zap.String("participant_id", s.ParticipantId),
			zap.Int("current_streak", s.CurrentStreak))
	}
	return changed, nil
}

// SweepExpiredChallengesAndStreaks fails active challenges whose deadline is
// before today, marks stale streaks inactive and retries queued reward
// credits. Every step only moves state forward, so it can run alongside user
// operations and be repeated safely.
func (e *Engine) SweepExpiredChallengesAndStreaks(ctx context.Context, today time.Time) (models.SweepReport, error) {
	today = streak.Date(today)
	var report models.SweepReport

	failed, err := e.store.FailExpiredChallenges(ctx, today)
	if err != nil {
		return report, fmt.Errorf("failed to expire challenges: %w", err)
	}
	report.ChallengesFailed = failed
	if failed > 0 {
		metrics.ChallengeTransitions.WithLabelValues(models.FormatChallengeStatus(models.ChallengeFailed), "sweep").Add(float64(failed))
	}

	stale, err := e.store.ListStaleStreaks(ctx, streak.ExpiryCutoff(today))
	if err != nil {
		return report, fmt.Errorf("failed to list stale streaks: %w", err)
	}

	var errs []error
	for _, s := range stale {
		changed, err := e.expireStreak(ctx, s, today)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			report.StreaksExpired++
		}
	}

	delivered, err := e.DeliverPendingRewards(ctx, "", 0)
	report.RewardsDelivered = delivered
	if err != nil {
		errs = append(errs, err)
	}

	zap.L().Info("Sweep completed",
		zap.String("date", today.Format(time.DateOnly)),
		zap.Int64("challenges_failed", report.ChallengesFailed),
		zap.Int("streaks_expired", report.StreaksExpired),
		zap.Int("rewards_delivered", report.RewardsDelivered),
		zap.Int("errors", len(errs)))

	return report, errors.Join(errs...)
}
