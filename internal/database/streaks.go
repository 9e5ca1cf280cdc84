package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"go.uber.org/zap"
)

func scanStreak(row scanner) (models.ChallengeStreak, error) {
	var (
		s        models.ChallengeStreak
		lastDate sql.NullString
	)
	err := row.Scan(&s.Id, &s.ParticipantId, &s.ChallengeId, &s.UserId, &s.CurrentStreak, &s.LongestStreak,
		&lastDate, &s.TotalContributions, &s.StreakActive, &s.BonusPointsEarned, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}

	if lastDate.Valid && lastDate.String != "" {
		if s.LastContributionDate, err = parseDate(lastDate.String); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (r *repository) GetStreakByParticipant(ctx context.Context, participantId string) (*models.ChallengeStreak, error) {
	s, err := scanStreak(r.q.QueryRowContext(ctx, queryGetStreakByParticipant, participantId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: streak for participant %s", store.ErrNotFound, participantId)
		}
		return nil, fmt.Errorf("unable to query streak: %w", err)
	}
	return &s, nil
}

// SaveStreak inserts the participant's streak or overwrites its counters.
func (r *repository) SaveStreak(ctx context.Context, s *models.ChallengeStreak) error {
	var lastDate any
	if !s.LastContributionDate.IsZero() {
		lastDate = formatDate(s.LastContributionDate)
	}

	s.UpdatedAt = now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.UpdatedAt
	}

	_, err := r.q.ExecContext(ctx, queryUpsertStreak,
		s.Id, s.ParticipantId, s.ChallengeId, s.UserId, s.CurrentStreak, s.LongestStreak,
		lastDate, s.TotalContributions, s.StreakActive, s.BonusPointsEarned, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to save streak", zap.String("participant_id", s.ParticipantId), zap.Error(err))
		return fmt.Errorf("unable to save streak: %w", err)
	}
	return nil
}

// DeactivateStreak flips an active streak off if its last contribution is
// still before cutoff. A contribution racing with the sweep wins.
func (r *repository) DeactivateStreak(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	result, err := r.q.ExecContext(ctx, queryDeactivateStreak, now(), id, formatDate(cutoff))
	if err != nil {
		return false, fmt.Errorf("unable to deactivate streak: %w", err)
	}
	return rowsChanged(result)
}

func (r *repository) listStreaks(ctx context.Context, query string, args ...any) ([]models.ChallengeStreak, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query streaks", zap.Error(err))
		return nil, fmt.Errorf("unable to query streaks: %w", err)
	}

	streaks, err := collect(rows, scanStreak)
	if err != nil {
		return nil, fmt.Errorf("unable to scan streak row: %w", err)
	}
	return streaks, nil
}

func (r *repository) ListStreaksByChallenge(ctx context.Context, challengeId string) ([]models.ChallengeStreak, error) {
	return r.listStreaks(ctx, queryListStreaksByChallenge, challengeId)
}

func (r *repository) ListStreaksByUser(ctx context.Context, userId string) ([]models.ChallengeStreak, error) {
	return r.listStreaks(ctx, queryListStreaksByUser, userId)
}

// ListStaleStreaks returns active streaks whose last contribution predates cutoff.
func (r *repository) ListStaleStreaks(ctx context.Context, cutoff time.Time) ([]models.ChallengeStreak, error) {
	return r.listStreaks(ctx, queryListStaleStreaks, formatDate(cutoff))
}
