package challenge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"
	"challenge-goals-go/internal/streak"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const topContributors = 3

var hundred = decimal.NewFromInt(100)

// percentOf returns part/whole as a percentage rounded half-up to two places,
// or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) models.Percent {
	if whole.IsZero() {
		return models.NewPercent(decimal.Zero)
	}
	return models.NewPercent(part.Mul(hundred).DivRound(whole, 2))
}

func challengeView(c models.Challenge, participants []models.Participant) models.ChallengeView {
	view := models.ChallengeView{
		Id:                 c.Id,
		CreatorId:          c.CreatorId,
		Title:              c.Title,
		Description:        c.Description,
		TargetAmount:       c.TargetAmount,
		CurrentAmount:      c.CurrentAmount,
		ProgressPercentage: percentOf(c.CurrentAmount, c.TargetAmount),
		Category:           c.Category,
		Deadline:           c.Deadline.Format(time.DateOnly),
		Status:             models.FormatChallengeStatus(c.Status),
		MaxParticipants:    c.MaxParticipants,
		RewardPoints:       c.RewardPoints,
		TopContributors:    []models.ContributorView{},
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}

	ranked := append([]models.Participant(nil), participants...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ContributedAmount.GreaterThan(ranked[j].ContributedAmount)
	})

	for _, p := range ranked {
		if p.Status != models.ParticipantLeft {
			view.ParticipantCount++
		}
		if len(view.TopContributors) < topContributors && p.ContributedAmount.IsPositive() {
			view.TopContributors = append(view.TopContributors, models.ContributorView{
				UserId:                 p.UserId,
				ContributedAmount:      p.ContributedAmount,
				ContributionPercentage: percentOf(p.ContributedAmount, c.TargetAmount),
			})
		}
	}
	return view
}

// participantView reports the participant's share of the challenge target.
func participantView(p models.Participant, target decimal.Decimal) models.ParticipantView {
	return models.ParticipantView{
		Id:                     p.Id,
		ChallengeId:            p.ChallengeId,
		UserId:                 p.UserId,
		ContributedAmount:      p.ContributedAmount,
		ContributionPercentage: percentOf(p.ContributedAmount, target),
		Status:                 models.FormatParticipantStatus(p.Status),
		IsCreator:              p.IsCreator,
		RewardClaimed:          p.RewardClaimed,
		JoinedAt:               p.JoinedAt,
	}
}

func streakView(s models.ChallengeStreak) models.StreakView {
	view := models.StreakView{
		Id:                 s.Id,
		ParticipantId:      s.ParticipantId,
		ChallengeId:        s.ChallengeId,
		UserId:             s.UserId,
		CurrentStreak:      s.CurrentStreak,
		LongestStreak:      s.LongestStreak,
		TotalContributions: s.TotalContributions,
		StreakActive:       s.StreakActive,
		BonusPointsEarned:  s.BonusPointsEarned,
		TierBonus:          streak.TierBonus(s.CurrentStreak),
	}
	if !s.LastContributionDate.IsZero() {
		view.LastContributionDate = s.LastContributionDate.Format(time.DateOnly)
	}
	return view
}

func loadView(ctx context.Context, repo store.Repository, challengeId string) (*models.ChallengeView, error) {
	c, err := lookupChallenge(ctx, repo, challengeId)
	if err != nil {
		return nil, err
	}
	participants, err := repo.ListParticipants(ctx, challengeId)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	view := challengeView(*c, participants)
	return &view, nil
}

func (e *Engine) views(ctx context.Context, challenges []models.Challenge) ([]models.ChallengeView, error) {
	views := make([]models.ChallengeView, 0, len(challenges))
	for _, c := range challenges {
		participants, err := e.store.ListParticipants(ctx, c.Id)
		if err != nil {
			return nil, fmt.Errorf("failed to list participants: %w", err)
		}
		views = append(views, challengeView(c, participants))
	}
	return views, nil
}

func (e *Engine) GetChallenge(ctx context.Context, challengeId string) (*models.ChallengeView, error) {
	return loadView(ctx, e.store, challengeId)
}

// ListMyChallenges returns every challenge the user created or joined, including left ones.
func (e *Engine) ListMyChallenges(ctx context.Context, userId string) ([]models.ChallengeView, error) {
	challenges, err := e.store.ListChallengesByParticipant(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return e.views(ctx, challenges)
}

// ListActiveChallenges returns the active challenges the user is still an active member of.
func (e *Engine) ListActiveChallenges(ctx context.Context, userId string) ([]models.ChallengeView, error) {
	challenges, err := e.store.ListActiveChallengesByParticipant(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list active challenges: %w", err)
	}
	return e.views(ctx, challenges)
}

// ListAvailableChallenges returns active challenges with room for another member, newest first.
func (e *Engine) ListAvailableChallenges(ctx context.Context) ([]models.ChallengeView, error) {
	challenges, err := e.store.ListAvailableChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available challenges: %w", err)
	}
	return e.views(ctx, challenges)
}

func (e *Engine) ListChallengesByCreator(ctx context.Context, creatorId string) ([]models.ChallengeView, error) {
	challenges, err := e.store.ListChallengesByCreator(ctx, creatorId)
	if err != nil {
		return nil, fmt.Errorf("failed to list created challenges: %w", err)
	}
	return e.views(ctx, challenges)
}

func (e *Engine) ListChallengesByStatus(ctx context.Context, status models.ChallengeStatus) ([]models.ChallengeView, error) {
	challenges, err := e.store.ListChallengesByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges by status: %w", err)
	}
	return e.views(ctx, challenges)
}

// ListContributions returns a challenge's contributions in the order they were applied.
func (e *Engine) ListContributions(ctx context.Context, challengeId string) ([]models.Contribution, error) {
	if _, err := lookupChallenge(ctx, e.store, challengeId); err != nil {
		return nil, err
	}
	contributions, err := e.store.ListContributions(ctx, challengeId)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return contributions, nil
}

// ListParticipants ranks a challenge's participants by contributed amount, highest first.
func (e *Engine) ListParticipants(ctx context.Context, challengeId string) ([]models.ParticipantView, error) {
	c, err := lookupChallenge(ctx, e.store, challengeId)
	if err != nil {
		return nil, err
	}
	participants, err := e.store.ListParticipants(ctx, challengeId)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	views := make([]models.ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, participantView(p, c.TargetAmount))
	}
	return views, nil
}

// refresh applies staleness to a streak before it is reported and persists
// the change when the active flag flips.
func (e *Engine) refresh(ctx context.Context, s models.ChallengeStreak, today time.Time) models.StreakView {
	if expired, flipped := streak.CheckAndExpire(s, today); flipped {
		s = expired
		if _, err := e.store.DeactivateStreak(ctx, s.Id, streak.ExpiryCutoff(today)); err != nil {
			zap.L().Warn("Failed to persist expired streak",
				zap.String("streak_id", s.Id),
				zap.Error(err))
		}
	}
	return streakView(s)
}

func (e *Engine) GetStreakByParticipant(ctx context.Context, participantId string) (*models.StreakView, error) {
	s, err := e.store.GetStreakByParticipant(ctx, participantId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &Error{Kind: NotFound, Reason: ErrStreakNotFound, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}

	view := e.refresh(ctx, *s, e.clock.Today())
	return &view, nil
}

// ListChallengeStreaks returns a challenge's streaks, longest current streak first.
func (e *Engine) ListChallengeStreaks(ctx context.Context, challengeId string) ([]models.StreakView, error) {
	if _, err := lookupChallenge(ctx, e.store, challengeId); err != nil {
		return nil, err
	}
	streaks, err := e.store.ListStreaksByChallenge(ctx, challengeId)
	if err != nil {
		return nil, fmt.Errorf("failed to list streaks: %w", err)
	}
	views := e.refreshAll(ctx, streaks)
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CurrentStreak > views[j].CurrentStreak
	})
	return views, nil
}

func (e *Engine) ListUserStreaks(ctx context.Context, userId string) ([]models.StreakView, error) {
	streaks, err := e.store.ListStreaksByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list streaks: %w", err)
	}
	return e.refreshAll(ctx, streaks), nil
}

func (e *Engine) refreshAll(ctx context.Context, streaks []models.ChallengeStreak) []models.StreakView {
	today := e.clock.Today()
	views := make([]models.StreakView, 0, len(streaks))
	for _, s := range streaks {
		views = append(views, e.refresh(ctx, s, today))
	}
	return views
}
