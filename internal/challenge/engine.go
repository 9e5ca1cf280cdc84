// Package challenge implements the group challenge lifecycle: creation,
// membership, contributions, completion and reward settlement.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"challenge-goals-go/internal/clock"
	"challenge-goals-go/internal/metrics"
	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"
	"challenge-goals-go/internal/streak"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxCategoryLength    = 50
	maxNoteLength        = 255
	minParticipants      = 2
	maxParticipants      = 50
	moneyScale           = 2

	DefaultRewardPoints = 100
)

// Achievement codes reported to the AchievementTracker.
const (
	AchievementChallengesCreated   = "CHALLENGES_CREATED_3"
	AchievementFirstChallenge      = "FIRST_CHALLENGE"
	AchievementChallengesCompleted = "CHALLENGES_COMPLETED_5"
)

type Config struct {
	Store        store.ChallengeStore
	Users        store.UserDirectory
	Achievements store.AchievementTracker // optional
	Clock        clock.Clock
}

type Engine struct {
	store        store.ChallengeStore
	users        store.UserDirectory
	achievements store.AchievementTracker
	clock        clock.Clock
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("challenge store is required")
	}
	if cfg.Users == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Engine{
		store:        cfg.Store,
		users:        cfg.Users,
		achievements: cfg.Achievements,
		clock:        cfg.Clock,
	}, nil
}

type CreateParams struct {
	CreatorId       string
	Title           string
	Description     string
	TargetAmount    decimal.Decimal
	Category        string
	Deadline        time.Time
	MaxParticipants *int
	RewardPoints    *int // nil means DefaultRewardPoints
}

// UpdateParams holds the fields to change. Nil fields are left as they are.
type UpdateParams struct {
	Title           *string
	Description     *string
	TargetAmount    *decimal.Decimal
	Category        *string
	Deadline        *time.Time
	MaxParticipants *int
	RewardPoints    *int
}

// progressReport is an achievement update collected inside a unit of work and
// sent once it has committed.
type progressReport struct {
	userId string
	code   string
	value  int
}

func validateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 || !amount.Equal(amount.Round(moneyScale)) {
		return invalid(ErrInvalidAmount, "got %s", amount.String())
	}
	return nil
}

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n == 0 || n > maxTitleLength {
		return invalid(ErrInvalidTitle, "got %d characters", n)
	}
	return nil
}

func validateDescription(description string) error {
	if n := utf8.RuneCountInString(description); n > maxDescriptionLength {
		return invalid(ErrInvalidDescription, "got %d characters", n)
	}
	return nil
}

func validateCategory(category string) error {
	if n := utf8.RuneCountInString(category); n > maxCategoryLength {
		return invalid(ErrInvalidCategory, "got %d characters", n)
	}
	return nil
}

func validateDeadline(deadline, today time.Time) error {
	if !streak.Date(deadline).After(today) {
		return invalid(ErrInvalidDeadline, "deadline %s is not after %s",
			deadline.Format(time.DateOnly), today.Format(time.DateOnly))
	}
	return nil
}

func validateCapacity(max *int) error {
	if max != nil && (*max < minParticipants || *max > maxParticipants) {
		return invalid(ErrInvalidCapacity, "got %d", *max)
	}
	return nil
}

func validateRewardPoints(points int) error {
	if points < 0 {
		return invalid(ErrInvalidRewardPoints, "got %d", points)
	}
	return nil
}

func (e *Engine) lookupUser(ctx context.Context, userId string) (*models.User, error) {
	user, err := e.users.GetUser(ctx, userId)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, &Error{Kind: NotFound, Reason: ErrUserNotFound, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

func lookupChallenge(ctx context.Context, repo store.Repository, challengeId string) (*models.Challenge, error) {
	c, err := repo.GetChallenge(ctx, challengeId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &Error{Kind: NotFound, Reason: ErrChallengeNotFound, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return c, nil
}

// lookupMember returns the caller's participant row, treating a missing or
// LEFT row as not being a participant.
func lookupMember(ctx context.Context, repo store.Repository, challengeId, userId string) (*models.Participant, error) {
	p, err := repo.GetParticipant(ctx, challengeId, userId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(Forbidden, ErrNotAParticipant)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	if p.Status == models.ParticipantLeft {
		return nil, newError(Forbidden, ErrNotAParticipant)
	}
	return p, nil
}

// lookupOwned loads a challenge the caller may still modify.
func lookupOwned(ctx context.Context, repo store.Repository, challengeId, userId string) (*models.Challenge, error) {
	c, err := lookupChallenge(ctx, repo, challengeId)
	if err != nil {
		return nil, err
	}
	if c.CreatorId != userId {
		return nil, newError(Forbidden, ErrNotCreator)
	}
	if c.Status != models.ChallengeActive {
		return nil, newError(StateConflict, ErrNotMutable)
	}
	return c, nil
}

func (e *Engine) report(ctx context.Context, reports []progressReport) {
	if e.achievements == nil {
		return
	}
	for _, r := range reports {
		if err := e.achievements.ReportProgress(ctx, r.userId, r.code, r.value); err != nil {
			metrics.SideEffectFailures.WithLabelValues("achievement_progress").Inc()
			zap.L().Warn("Failed to report achievement progress",
				zap.String("user_id", r.userId),
				zap.String("code", r.code),
				zap.Int("value", r.value),
				zap.Error(err))
		}
	}
}

// CreateChallenge opens a new challenge with the creator as its first participant.
func (e *Engine) CreateChallenge(ctx context.Context, params CreateParams) (*models.ChallengeView, error) {
	today := e.clock.Today()
	title := strings.TrimSpace(params.Title)

	rewardPoints := DefaultRewardPoints
	if params.RewardPoints != nil {
		rewardPoints = *params.RewardPoints
	}

	for _, err := range []error{
		validateTitle(title),
		validateDescription(params.Description),
		validateAmount(params.TargetAmount),
		validateCategory(params.Category),
		validateDeadline(params.Deadline, today),
		validateCapacity(params.MaxParticipants),
		validateRewardPoints(rewardPoints),
	} {
		if err != nil {
			return nil, err
		}
	}

	creator, err := e.lookupUser(ctx, params.CreatorId)
	if err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	c := &models.Challenge{
		Id:              uuid.New().String(),
		CreatorId:       creator.Id,
		Title:           title,
		Description:     params.Description,
		TargetAmount:    params.TargetAmount,
		CurrentAmount:   decimal.Zero,
		Category:        params.Category,
		Deadline:        streak.Date(params.Deadline),
		Status:          models.ChallengeActive,
		MaxParticipants: params.MaxParticipants,
		RewardPoints:    rewardPoints,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}

	var (
		view   *models.ChallengeView
		active int
	)
	err = e.store.WithinTx(ctx, func(repo store.Repository) error {
		var err error
		if active, err = repo.CountActiveChallengesByCreator(ctx, creator.Id); err != nil {
			return fmt.Errorf("failed to count active challenges: %w", err)
		}
		if active >= creator.ChallengeQuota {
			return &Error{Kind: QuotaExceeded, Reason: ErrQuotaExceeded,
				Err: fmt.Errorf("%d of %d active challenges on plan %s", active, creator.ChallengeQuota, models.FormatPlan(creator.Plan))}
		}

		if err := repo.InsertChallenge(ctx, c); err != nil {
			return fmt.Errorf("failed to insert challenge: %w", err)
		}
		if err := repo.InsertParticipant(ctx, &models.Participant{
			Id:                uuid.New().String(),
			ChallengeId:       c.Id,
			UserId:            creator.Id,
			ContributedAmount: decimal.Zero,
			Status:            models.ParticipantActive,
			IsCreator:         true,
			JoinedAt:          ts,
			UpdatedAt:         ts,
		}); err != nil {
			return fmt.Errorf("failed to insert creator participant: %w", err)
		}
		active++

		view, err = loadView(ctx, repo, c.Id)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Challenge created",
		zap.String("challenge_id", c.Id),
		zap.String("creator_id", creator.Id),
		zap.String("target", c.TargetAmount.String()),
		zap.String("deadline", c.Deadline.Format(time.DateOnly)))

	e.report(ctx, []progressReport{{creator.Id, AchievementChallengesCreated, active}})
	return view, nil
}

// JoinChallenge adds the user as a participant of an active challenge.
func (e *Engine) JoinChallenge(ctx context.Context, userId, challengeId string) (*models.ParticipantView, error) {
	if _, err := e.lookupUser(ctx, userId); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	p := &models.Participant{
		Id:                uuid.New().String(),
		ChallengeId:       challengeId,
		UserId:            userId,
		ContributedAmount: decimal.Zero,
		Status:            models.ParticipantActive,
		JoinedAt:          ts,
		UpdatedAt:         ts,
	}

	var (
		c              *models.Challenge
		participations int
	)
	err := e.store.WithinTx(ctx, func(repo store.Repository) error {
		var err error
		if c, err = lookupChallenge(ctx, repo, challengeId); err != nil {
			return err
		}
		if c.Status != models.ChallengeActive {
			return newError(StateConflict, ErrChallengeNotActive)
		}

		if _, err := repo.GetParticipant(ctx, challengeId, userId); err == nil {
			return newError(Conflict, ErrAlreadyJoined)
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to check membership: %w", err)
		}

		if c.MaxParticipants != nil {
			count, err := repo.CountActiveParticipants(ctx, challengeId)
			if err != nil {
				return fmt.Errorf("failed to count participants: %w", err)
			}
			if count >= *c.MaxParticipants {
				return newError(Conflict, ErrChallengeFull)
			}
		}

		if err := repo.InsertParticipant(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return &Error{Kind: Conflict, Reason: ErrAlreadyJoined, Err: err}
			}
			return fmt.Errorf("failed to insert participant: %w", err)
		}

		participations, err = repo.CountParticipationsByUser(ctx, userId)
		if err != nil {
			return fmt.Errorf("failed to count participations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User joined challenge",
		zap.String("challenge_id", challengeId),
		zap.String("user_id", userId),
		zap.String("participant_id", p.Id))

	e.report(ctx, []progressReport{{userId, AchievementFirstChallenge, participations}})
	view := participantView(*p, c.TargetAmount)
	return &view, nil
}

// LeaveChallenge marks a non-creator participant as LEFT. Amounts already
// contributed stay in the challenge total.
func (e *Engine) LeaveChallenge(ctx context.Context, userId, challengeId string) error {
	err := e.store.WithinTx(ctx, func(repo store.Repository) error {
		c, err := lookupChallenge(ctx, repo, challengeId)
		if err != nil {
			return err
		}
		p, err := lookupMember(ctx, repo, challengeId, userId)
		if err != nil {
			return err
		}
		if p.IsCreator {
			return newError(Forbidden, ErrCreatorCannotLeave)
		}
		if c.Status != models.ChallengeActive {
			return newError(StateConflict, ErrChallengeNotActive)
		}

		moved, err := repo.TransitionParticipant(ctx, p.Id, models.ParticipantActive, models.ParticipantLeft)
		if err != nil {
			return fmt.Errorf("failed to leave challenge: %w", err)
		}
		if !moved {
			return newError(Forbidden, ErrNotAParticipant)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("User left challenge",
		zap.String("challenge_id", challengeId),
		zap.String("user_id", userId))
	return nil
}

// UpdateChallenge edits an active challenge on behalf of its creator. Lowering
// the target to or below the amount already raised completes the challenge.
func (e *Engine) UpdateChallenge(ctx context.Context, userId, challengeId string, params UpdateParams) (*models.ChallengeView, error) {
	today := e.clock.Today()

	var (
		view      *models.ChallengeView
		reports   []progressReport
		completed bool
	)
	err := e.store.WithinTx(ctx, func(repo store.Repository) error {
		c, err := lookupOwned(ctx, repo, challengeId, userId)
		if err != nil {
			return err
		}

		update := store.UpdateChallengeParams{
			Id:              c.Id,
			Title:           c.Title,
			Description:     c.Description,
			TargetAmount:    c.TargetAmount,
			Category:        c.Category,
			Deadline:        c.Deadline,
			MaxParticipants: c.MaxParticipants,
			RewardPoints:    c.RewardPoints,
		}

		if params.Title != nil {
			update.Title = strings.TrimSpace(*params.Title)
			if err := validateTitle(update.Title); err != nil {
				return err
			}
		}
		if params.Description != nil {
			if err := validateDescription(*params.Description); err != nil {
				return err
			}
			update.Description = *params.Description
		}
		if params.TargetAmount != nil {
			if err := validateAmount(*params.TargetAmount); err != nil {
				return err
			}
			update.TargetAmount = *params.TargetAmount
		}
		if params.Category != nil {
			if err := validateCategory(*params.Category); err != nil {
				return err
			}
			update.Category = *params.Category
		}
		if params.Deadline != nil {
			if err := validateDeadline(*params.Deadline, today); err != nil {
				return err
			}
			update.Deadline = streak.Date(*params.Deadline)
		}
		if params.MaxParticipants != nil {
			if err := validateCapacity(params.MaxParticipants); err != nil {
				return err
			}
			count, err := repo.CountActiveParticipants(ctx, c.Id)
			if err != nil {
				return fmt.Errorf("failed to count participants: %w", err)
			}
			if *params.MaxParticipants < count {
				return invalid(ErrInvalidCapacity, "%d active participants exceed new limit %d", count, *params.MaxParticipants)
			}
			update.MaxParticipants = params.MaxParticipants
		}
		if params.RewardPoints != nil {
			if err := validateRewardPoints(*params.RewardPoints); err != nil {
				return err
			}
			update.RewardPoints = *params.RewardPoints
		}

		if err := repo.UpdateChallengeDetails(ctx, update); err != nil {
			if errors.Is(err, store.ErrConcurrentModification) {
				return &Error{Kind: StateConflict, Reason: ErrNotMutable, Err: err}
			}
			return fmt.Errorf("failed to update challenge: %w", err)
		}

		if c.CurrentAmount.GreaterThanOrEqual(update.TargetAmount) {
			if completed, err = repo.TransitionChallenge(ctx, c.Id, models.ChallengeActive, models.ChallengeCompleted); err != nil {
				return fmt.Errorf("failed to complete challenge: %w", err)
			}
			if completed {
				if reports, err = e.distributeRewards(ctx, repo, c.Id); err != nil {
					return err
				}
			}
		}

		view, err = loadView(ctx, repo, c.Id)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Challenge updated",
		zap.String("challenge_id", challengeId),
		zap.String("user_id", userId),
		zap.Bool("completed", completed))

	if completed {
		metrics.ChallengeTransitions.WithLabelValues(models.FormatChallengeStatus(models.ChallengeCompleted), "update").Inc()
		e.settle(ctx, challengeId, reports)
	}
	return view, nil
}

// DeleteChallenge cancels an active challenge. History is kept.
func (e *Engine) DeleteChallenge(ctx context.Context, userId, challengeId string) error {
	err := e.store.WithinTx(ctx, func(repo store.Repository) error {
		c, err := lookupOwned(ctx, repo, challengeId, userId)
		if err != nil {
			return err
		}
		moved, err := repo.TransitionChallenge(ctx, c.Id, models.ChallengeActive, models.ChallengeCancelled)
		if err != nil {
			return fmt.Errorf("failed to cancel challenge: %w", err)
		}
		if !moved {
			return newError(StateConflict, ErrNotMutable)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.ChallengeTransitions.WithLabelValues(models.FormatChallengeStatus(models.ChallengeCancelled), "delete").Inc()
	zap.L().Info("Challenge cancelled",
		zap.String("challenge_id", challengeId),
		zap.String("user_id", userId))
	return nil
}
