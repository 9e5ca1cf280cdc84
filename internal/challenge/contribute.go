package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"challenge-goals-go/internal/metrics"
	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"
	"challenge-goals-go/internal/streak"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ContributeParams struct {
	UserId      string
	ChallengeId string
	Amount      decimal.Decimal
	Note        string
}

// Contribute adds an amount to the caller's share and to the challenge total,
// advances the caller's streak and, when the target is reached, completes the
// challenge and settles rewards for every active participant.
//
// A challenge whose deadline has passed is failed on the spot and the
// contribution is rejected with ChallengeExpired.
func (e *Engine) Contribute(ctx context.Context, params ContributeParams) (*models.ChallengeView, error) {
	if err := validateAmount(params.Amount); err != nil {
		metrics.ContributionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if n := utf8.RuneCountInString(params.Note); n > maxNoteLength {
		metrics.ContributionsTotal.WithLabelValues("rejected").Inc()
		return nil, invalid(ErrInvalidNote, "got %d characters", n)
	}

	today := e.clock.Today()

	var (
		view      *models.ChallengeView
		reports   []progressReport
		expired   bool
		completed bool
		bonus     int
	)
	err := e.store.WithinTx(ctx, func(repo store.Repository) error {
		c, err := lookupChallenge(ctx, repo, params.ChallengeId)
		if err != nil {
			return err
		}
		p, err := lookupMember(ctx, repo, params.ChallengeId, params.UserId)
		if err != nil {
			return err
		}
		if c.Status != models.ChallengeActive {
			return newError(StateConflict, ErrChallengeNotActive)
		}
		if p.Status != models.ParticipantActive {
			return newError(Forbidden, ErrNotAParticipant)
		}

		if c.Deadline.Before(today) {
			// Commit the failure; the caller still gets an error.
			if expired, err = repo.TransitionChallenge(ctx, c.Id, models.ChallengeActive, models.ChallengeFailed); err != nil {
				return fmt.Errorf("failed to expire challenge: %w", err)
			}
			return nil
		}

		if err := repo.AddParticipantAmount(ctx, p.Id, params.Amount); err != nil {
			return fmt.Errorf("failed to add participant amount: %w", err)
		}
		total, err := repo.AddChallengeAmount(ctx, c.Id, params.Amount)
		if err != nil {
			return fmt.Errorf("failed to add challenge amount: %w", err)
		}
		if err := repo.InsertContribution(ctx, &models.Contribution{
			Id:            uuid.New().String(),
			ChallengeId:   c.Id,
			ParticipantId: p.Id,
			UserId:        p.UserId,
			Amount:        params.Amount,
			Note:          params.Note,
			ContributedOn: today,
			CreatedAt:     time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("failed to record contribution: %w", err)
		}

		if total.GreaterThanOrEqual(c.TargetAmount) {
			if completed, err = repo.TransitionChallenge(ctx, c.Id, models.ChallengeActive, models.ChallengeCompleted); err != nil {
				return fmt.Errorf("failed to complete challenge: %w", err)
			}
		}

		if bonus, err = advanceStreak(ctx, repo, p, today); err != nil {
			return err
		}

		if completed {
			if reports, err = e.distributeRewards(ctx, repo, c.Id); err != nil {
				return err
			}
		}

		view, err = loadView(ctx, repo, c.Id)
		return err
	})
	if err != nil {
		metrics.ContributionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if expired || view == nil {
		metrics.ContributionsTotal.WithLabelValues("expired").Inc()
		if expired {
			metrics.ChallengeTransitions.WithLabelValues(models.FormatChallengeStatus(models.ChallengeFailed), "contribution").Inc()
			zap.L().Info("Challenge expired on contribution",
				zap.String("challenge_id", params.ChallengeId),
				zap.String("user_id", params.UserId))
		}
		return nil, newError(ChallengeExpired, ErrChallengeExpired)
	}

	metrics.ContributionsTotal.WithLabelValues("applied").Inc()
	zap.L().Info("Contribution applied",
		zap.String("challenge_id", params.ChallengeId),
		zap.String("user_id", params.UserId),
		zap.String("amount", params.Amount.String()),
		zap.String("total", view.CurrentAmount.String()),
		zap.Int("streak_bonus", bonus),
		zap.Bool("completed", completed))

	if completed {
		metrics.ChallengeTransitions.WithLabelValues(models.FormatChallengeStatus(models.ChallengeCompleted), "contribution").Inc()
	}
	if completed || bonus > 0 {
		e.settle(ctx, params.ChallengeId, reports)
	}
	return view, nil
}

// advanceStreak records today's contribution on the participant's streak,
// creating it on first use, and queues any bonus it earned. It returns the
// bonus points awarded.
func advanceStreak(ctx context.Context, repo store.Repository, p *models.Participant, today time.Time) (int, error) {
	current, err := repo.GetStreakByParticipant(ctx, p.Id)
	if errors.Is(err, store.ErrNotFound) {
		current = &models.ChallengeStreak{
			Id:            uuid.New().String(),
			ParticipantId: p.Id,
			ChallengeId:   p.ChallengeId,
			UserId:        p.UserId,
			StreakActive:  true,
		}
	} else if err != nil {
		return 0, fmt.Errorf("failed to load streak: %w", err)
	}

	updated, res := streak.UpdateOnContribution(*current, today)
	if err := repo.SaveStreak(ctx, &updated); err != nil {
		return 0, fmt.Errorf("failed to save streak: %w", err)
	}

	if res.BonusAwarded == 0 {
		return 0, nil
	}

	if _, err := repo.EnqueueRewardCredit(ctx, &models.RewardCredit{
		Id:            uuid.New().String(),
		Reference:     fmt.Sprintf("streak-bonus:%s:%d", updated.Id, updated.TotalContributions),
		Kind:          models.RewardStreakBonus,
		UserId:        p.UserId,
		ChallengeId:   p.ChallengeId,
		ParticipantId: p.Id,
		Points:        res.BonusAwarded,
	}); err != nil {
		return 0, fmt.Errorf("failed to queue streak bonus: %w", err)
	}

	zap.L().Info("Streak bonus earned",
		zap.String("participant_id", p.Id),
		zap.Int("current_streak", updated.CurrentStreak),
		zap.Int("bonus", res.BonusAwarded))
	return res.BonusAwarded, nil
}
