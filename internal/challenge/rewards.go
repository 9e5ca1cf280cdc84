package challenge

import (
	"context"
	"fmt"

	"challenge-goals-go/internal/metrics"
	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// distributeRewards settles every active, unclaimed participant of a completed
// challenge inside the caller's unit of work. Settled participants become
// COMPLETED and get a challenge reward credit queued. Running it again on the
// same challenge changes nothing.
func (e *Engine) distributeRewards(ctx context.Context, repo store.Repository, challengeId string) ([]progressReport, error) {
	c, err := lookupChallenge(ctx, repo, challengeId)
	if err != nil {
		return nil, err
	}

	participants, err := repo.ListParticipants(ctx, challengeId)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	var reports []progressReport
	for _, p := range participants {
		if p.Status != models.ParticipantActive || p.RewardClaimed {
			continue
		}

		claimed, err := repo.ClaimParticipantReward(ctx, p.Id)
		if err != nil {
			return nil, fmt.Errorf("failed to claim reward for participant %s: %w", p.Id, err)
		}
		if !claimed {
			continue
		}

		if c.RewardPoints > 0 {
			if _, err := repo.EnqueueRewardCredit(ctx, &models.RewardCredit{
				Id:            uuid.New().String(),
				Reference:     "challenge-reward:" + p.Id,
				Kind:          models.RewardChallenge,
				UserId:        p.UserId,
				ChallengeId:   c.Id,
				ParticipantId: p.Id,
				Points:        c.RewardPoints,
			}); err != nil {
				return nil, fmt.Errorf("failed to queue reward for participant %s: %w", p.Id, err)
			}
		}

		completedCount, err := repo.CountCompletedParticipationsByUser(ctx, p.UserId)
		if err != nil {
			return nil, fmt.Errorf("failed to count completed participations: %w", err)
		}
		reports = append(reports, progressReport{p.UserId, AchievementChallengesCompleted, completedCount})
	}

	zap.L().Info("Challenge rewards distributed",
		zap.String("challenge_id", c.Id),
		zap.Int("participants_rewarded", len(reports)),
		zap.Int("reward_points", c.RewardPoints))
	return reports, nil
}

// DistributeRewards settles a completed challenge. It is safe to call on a
// challenge that was already settled and returns how many participants were
// newly rewarded.
func (e *Engine) DistributeRewards(ctx context.Context, challengeId string) (int, error) {
	var reports []progressReport
	err := e.store.WithinTx(ctx, func(repo store.Repository) error {
		c, err := lookupChallenge(ctx, repo, challengeId)
		if err != nil {
			return err
		}
		if c.Status != models.ChallengeCompleted {
			return newError(StateConflict, ErrChallengeNotCompleted)
		}
		reports, err = e.distributeRewards(ctx, repo, challengeId)
		return err
	})
	if err != nil {
		return 0, err
	}

	e.settle(ctx, challengeId, reports)
	return len(reports), nil
}

// settle runs the post-commit side effects of a settlement. Nothing here is
// allowed to fail the operation that triggered it.
func (e *Engine) settle(ctx context.Context, challengeId string, reports []progressReport) {
	if _, err := e.DeliverPendingRewards(ctx, challengeId, 0); err != nil {
		zap.L().Warn("Reward delivery incomplete, credits stay queued",
			zap.String("challenge_id", challengeId),
			zap.Error(err))
	}
	e.report(ctx, reports)
}

// DeliverPendingRewards applies queued reward credits to the user directory.
// An empty challengeId delivers across all challenges. Credits that fail stay
// pending with the error recorded and are retried after credits that have
// failed fewer times.
func (e *Engine) DeliverPendingRewards(ctx context.Context, challengeId string, limit int) (int, error) {
	credits, err := e.store.ListPendingRewardCredits(ctx, challengeId, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending reward credits: %w", err)
	}

	delivered := 0
	for _, rc := range credits {
		kind := models.FormatRewardKind(rc.Kind)

		if err := e.users.CreditPoints(ctx, rc.UserId, rc.Points, rc.Reference); err != nil {
			metrics.RewardCredits.WithLabelValues(kind, "failed").Inc()
			metrics.SideEffectFailures.WithLabelValues("credit_points").Inc()
			zap.L().Warn("Failed to credit reward points",
				zap.String("reference", rc.Reference),
				zap.String("user_id", rc.UserId),
				zap.Int("points", rc.Points),
				zap.Int("attempts", rc.Attempts+1),
				zap.Error(err))
			if markErr := e.store.MarkRewardCreditFailed(ctx, rc.Id, err); markErr != nil {
				zap.L().Error("Failed to record reward credit failure", zap.String("id", rc.Id), zap.Error(markErr))
			}
			continue
		}

		if err := e.store.MarkRewardCreditDelivered(ctx, rc.Id); err != nil {
			// Points are credited; the next retry is a no-op by reference.
			zap.L().Error("Failed to mark reward credit delivered", zap.String("id", rc.Id), zap.Error(err))
			continue
		}

		delivered++
		metrics.RewardCredits.WithLabelValues(kind, "delivered").Inc()
		metrics.RewardPoints.WithLabelValues(kind).Add(float64(rc.Points))
		zap.L().Debug("Reward credit delivered",
			zap.String("reference", rc.Reference),
			zap.String("user_id", rc.UserId),
			zap.Int("points", rc.Points))
	}

	if delivered < len(credits) {
		return delivered, fmt.Errorf("%d of %d reward credits not delivered", len(credits)-delivered, len(credits))
	}
	return delivered, nil
}
