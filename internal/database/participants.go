package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanParticipant(row scanner) (models.Participant, error) {
	var (
		p      models.Participant
		cents  int64
		status string
	)
	err := row.Scan(&p.Id, &p.ChallengeId, &p.UserId, &cents, &status, &p.IsCreator,
		&p.RewardClaimed, &p.JoinedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}

	p.ContributedAmount = fromCents(cents)
	if p.Status, err = models.ParseParticipantStatus(status); err != nil {
		return p, err
	}
	return p, nil
}

// InsertParticipant returns store.ErrDuplicate when the user already has a row for the challenge.
func (r *repository) InsertParticipant(ctx context.Context, p *models.Participant) error {
	_, err := r.q.ExecContext(ctx, queryInsertParticipant,
		p.Id, p.ChallengeId, p.UserId, toCents(p.ContributedAmount), models.FormatParticipantStatus(p.Status),
		p.IsCreator, p.RewardClaimed, p.JoinedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s already in challenge %s", store.ErrDuplicate, p.UserId, p.ChallengeId)
		}
		zap.L().Error("Failed to insert participant",
			zap.String("challenge_id", p.ChallengeId),
			zap.String("user_id", p.UserId),
			zap.Error(err))
		return fmt.Errorf("unable to insert participant: %w", err)
	}
	return nil
}

func (r *repository) GetParticipant(ctx context.Context, challengeId, userId string) (*models.Participant, error) {
	p, err := scanParticipant(r.q.QueryRowContext(ctx, queryGetParticipant, challengeId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: participant %s in challenge %s", store.ErrNotFound, userId, challengeId)
		}
		return nil, fmt.Errorf("unable to query participant: %w", err)
	}
	return &p, nil
}

func (r *repository) GetParticipantById(ctx context.Context, id string) (*models.Participant, error) {
	p, err := scanParticipant(r.q.QueryRowContext(ctx, queryGetParticipantById, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: participant %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query participant: %w", err)
	}
	return &p, nil
}

// ListParticipants returns every membership row ranked by contributed amount.
func (r *repository) ListParticipants(ctx context.Context, challengeId string) ([]models.Participant, error) {
	rows, err := r.q.QueryContext(ctx, queryListParticipants, challengeId)
	if err != nil {
		zap.L().Error("Failed to query participants", zap.String("challenge_id", challengeId), zap.Error(err))
		return nil, fmt.Errorf("unable to query participants: %w", err)
	}

	participants, err := collect(rows, scanParticipant)
	if err != nil {
		return nil, fmt.Errorf("unable to scan participant row: %w", err)
	}
	return participants, nil
}

func (r *repository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("unable to count participants: %w", err)
	}
	return n, nil
}

func (r *repository) CountActiveParticipants(ctx context.Context, challengeId string) (int, error) {
	return r.count(ctx, queryCountParticipantsByStatus, challengeId,
		models.FormatParticipantStatus(models.ParticipantActive))
}

// CountParticipationsByUser counts every challenge the user has ever joined, in any status.
func (r *repository) CountParticipationsByUser(ctx context.Context, userId string) (int, error) {
	return r.count(ctx, queryCountParticipationsByUser, userId)
}

func (r *repository) CountCompletedParticipationsByUser(ctx context.Context, userId string) (int, error) {
	return r.count(ctx, queryCountUserParticipationsByStatus, userId,
		models.FormatParticipantStatus(models.ParticipantCompleted))
}

func (r *repository) TransitionParticipant(ctx context.Context, id string, from, to models.ParticipantStatus) (bool, error) {
	result, err := r.q.ExecContext(ctx, queryTransitionParticipant,
		models.FormatParticipantStatus(to), now(), id, models.FormatParticipantStatus(from))
	if err != nil {
		return false, fmt.Errorf("unable to transition participant: %w", err)
	}
	return rowsChanged(result)
}

func (r *repository) AddParticipantAmount(ctx context.Context, id string, amount decimal.Decimal) error {
	result, err := r.q.ExecContext(ctx, queryAddParticipantAmount, toCents(amount), now(), id)
	if err != nil {
		return fmt.Errorf("unable to add participant amount: %w", err)
	}

	changed, err := rowsChanged(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: participant %s", store.ErrNotFound, id)
	}
	return nil
}

// ClaimParticipantReward settles an ACTIVE, unclaimed participant. It reports
// false when the row was already settled, which makes re-invocation harmless.
func (r *repository) ClaimParticipantReward(ctx context.Context, id string) (bool, error) {
	result, err := r.q.ExecContext(ctx, queryClaimParticipantReward,
		models.FormatParticipantStatus(models.ParticipantCompleted), now(),
		id, models.FormatParticipantStatus(models.ParticipantActive))
	if err != nil {
		return false, fmt.Errorf("unable to claim participant reward: %w", err)
	}
	return rowsChanged(result)
}

// DeleteParticipant removes the participant together with the streak it owns.
// Contribution audit rows are kept.
func (r *repository) DeleteParticipant(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, queryDeleteStreakByParticipant, id); err != nil {
		return fmt.Errorf("unable to delete participant streak: %w", err)
	}

	result, err := r.q.ExecContext(ctx, queryDeleteParticipant, id)
	if err != nil {
		return fmt.Errorf("unable to delete participant: %w", err)
	}

	changed, err := rowsChanged(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: participant %s", store.ErrNotFound, id)
	}
	return nil
}
