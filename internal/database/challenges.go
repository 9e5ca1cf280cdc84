package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanChallenge(row scanner) (models.Challenge, error) {
	var (
		c                     models.Challenge
		targetCents, curCents int64
		deadline, status      string
		maxParticipants       sql.NullInt64
	)
	err := row.Scan(&c.Id, &c.CreatorId, &c.Title, &c.Description, &targetCents, &curCents,
		&c.Category, &deadline, &status, &maxParticipants, &c.RewardPoints, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}

	c.TargetAmount = fromCents(targetCents)
	c.CurrentAmount = fromCents(curCents)
	if c.Deadline, err = parseDate(deadline); err != nil {
		return c, err
	}
	if c.Status, err = models.ParseChallengeStatus(status); err != nil {
		return c, err
	}
	if maxParticipants.Valid {
		limit := int(maxParticipants.Int64)
		c.MaxParticipants = &limit
	}
	return c, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r *repository) InsertChallenge(ctx context.Context, c *models.Challenge) error {
	_, err := r.q.ExecContext(ctx, queryInsertChallenge,
		c.Id, c.CreatorId, c.Title, c.Description, toCents(c.TargetAmount), toCents(c.CurrentAmount),
		c.Category, formatDate(c.Deadline), models.FormatChallengeStatus(c.Status),
		nullableInt(c.MaxParticipants), c.RewardPoints, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: challenge %s", store.ErrDuplicate, c.Id)
		}
		zap.L().Error("Failed to insert challenge", zap.String("challenge_id", c.Id), zap.Error(err))
		return fmt.Errorf("unable to insert challenge: %w", err)
	}
	return nil
}

func (r *repository) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	c, err := scanChallenge(r.q.QueryRowContext(ctx, queryGetChallenge, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: challenge %s", store.ErrNotFound, id)
		}
		zap.L().Error("Failed to query challenge", zap.String("challenge_id", id), zap.Error(err))
		return nil, fmt.Errorf("unable to query challenge: %w", err)
	}
	return &c, nil
}

// UpdateChallengeDetails only touches ACTIVE challenges.
func (r *repository) UpdateChallengeDetails(ctx context.Context, p store.UpdateChallengeParams) error {
	result, err := r.q.ExecContext(ctx, queryUpdateChallengeDetails,
		p.Title, p.Description, toCents(p.TargetAmount), p.Category, formatDate(p.Deadline),
		nullableInt(p.MaxParticipants), p.RewardPoints, now(),
		p.Id, models.FormatChallengeStatus(models.ChallengeActive))
	if err != nil {
		return fmt.Errorf("unable to update challenge: %w", err)
	}

	changed, err := rowsChanged(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("challenge update failed - %w", store.ErrConcurrentModification)
	}
	return nil
}

func (r *repository) TransitionChallenge(ctx context.Context, id string, from, to models.ChallengeStatus) (bool, error) {
	result, err := r.q.ExecContext(ctx, queryTransitionChallenge,
		models.FormatChallengeStatus(to), now(), id, models.FormatChallengeStatus(from))
	if err != nil {
		return false, fmt.Errorf("unable to transition challenge: %w", err)
	}

	changed, err := rowsChanged(result)
	if err != nil {
		return false, err
	}
	if changed {
		zap.L().Info("Challenge status changed",
			zap.String("challenge_id", id),
			zap.String("from", models.FormatChallengeStatus(from)),
			zap.String("to", models.FormatChallengeStatus(to)))
	}
	return changed, nil
}

// AddChallengeAmount increments the accumulated amount in place and returns the new total.
func (r *repository) AddChallengeAmount(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	var total int64
	err := r.q.QueryRowContext(ctx, queryAddChallengeAmount, toCents(amount), now(), id).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: challenge %s", store.ErrNotFound, id)
		}
		return decimal.Zero, fmt.Errorf("unable to add challenge amount: %w", err)
	}
	return fromCents(total), nil
}

func (r *repository) CountActiveChallengesByCreator(ctx context.Context, creatorId string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, queryCountActiveChallengesByCreator,
		creatorId, models.FormatChallengeStatus(models.ChallengeActive)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unable to count created challenges: %w", err)
	}
	return count, nil
}

func (r *repository) listChallenges(ctx context.Context, query string, args ...any) ([]models.Challenge, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query challenges", zap.Error(err))
		return nil, fmt.Errorf("unable to query challenges: %w", err)
	}

	challenges, err := collect(rows, scanChallenge)
	if err != nil {
		return nil, fmt.Errorf("unable to scan challenge row: %w", err)
	}
	return challenges, nil
}

func (r *repository) ListChallengesByCreator(ctx context.Context, creatorId string) ([]models.Challenge, error) {
	return r.listChallenges(ctx, queryListChallengesByCreator, creatorId)
}

func (r *repository) ListChallengesByParticipant(ctx context.Context, userId string) ([]models.Challenge, error) {
	return r.listChallenges(ctx, queryListChallengesByParticipant, userId)
}

func (r *repository) ListActiveChallengesByParticipant(ctx context.Context, userId string) ([]models.Challenge, error) {
	return r.listChallenges(ctx, queryListActiveChallengesByParticipant, userId,
		models.FormatParticipantStatus(models.ParticipantActive),
		models.FormatChallengeStatus(models.ChallengeActive))
}

func (r *repository) ListChallengesByStatus(ctx context.Context, status models.ChallengeStatus) ([]models.Challenge, error) {
	return r.listChallenges(ctx, queryListChallengesByStatus, models.FormatChallengeStatus(status))
}

// ListAvailableChallenges returns ACTIVE challenges that still have room, newest first.
func (r *repository) ListAvailableChallenges(ctx context.Context) ([]models.Challenge, error) {
	return r.listChallenges(ctx, queryListAvailableChallenges,
		models.FormatChallengeStatus(models.ChallengeActive),
		models.FormatParticipantStatus(models.ParticipantActive))
}

// FailExpiredChallenges moves ACTIVE challenges whose deadline is before today
// to FAILED. The status guard keeps it forward only and safe next to live writers.
func (r *repository) FailExpiredChallenges(ctx context.Context, today time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, queryFailExpiredChallenges,
		models.FormatChallengeStatus(models.ChallengeFailed), now(),
		models.FormatChallengeStatus(models.ChallengeActive), formatDate(today))
	if err != nil {
		return 0, fmt.Errorf("unable to fail expired challenges: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected, nil
}
