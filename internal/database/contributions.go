package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"go.uber.org/zap"
)

func (r *repository) InsertContribution(ctx context.Context, c *models.Contribution) error {
	_, err := r.q.ExecContext(ctx, queryInsertContribution,
		c.Id, c.ChallengeId, c.ParticipantId, c.UserId, toCents(c.Amount), c.Note,
		formatDate(c.ContributedOn), c.CreatedAt)
	if err != nil {
		zap.L().Error("Failed to insert contribution",
			zap.String("challenge_id", c.ChallengeId),
			zap.String("user_id", c.UserId),
			zap.Error(err))
		return fmt.Errorf("unable to insert contribution: %w", err)
	}
	return nil
}

func scanContribution(row scanner) (models.Contribution, error) {
	var (
		c     models.Contribution
		cents int64
		day   string
	)
	err := row.Scan(&c.Id, &c.ChallengeId, &c.ParticipantId, &c.UserId, &cents, &c.Note, &day, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	c.Amount = fromCents(cents)
	if c.ContributedOn, err = parseDate(day); err != nil {
		return c, err
	}
	return c, nil
}

func (r *repository) ListContributions(ctx context.Context, challengeId string) ([]models.Contribution, error) {
	rows, err := r.q.QueryContext(ctx, queryListContributions, challengeId)
	if err != nil {
		return nil, fmt.Errorf("unable to query contributions: %w", err)
	}

	contributions, err := collect(rows, scanContribution)
	if err != nil {
		return nil, fmt.Errorf("unable to scan contribution row: %w", err)
	}
	return contributions, nil
}

// ReconcileChallenge compares the stored challenge total with the sum of
// participant amounts and the contribution audit trail.
func (s *Service) ReconcileChallenge(ctx context.Context, challengeId string) (*models.ChallengeReconciliation, error) {
	var current, participants, contributions int64
	err := s.db.QueryRowContext(ctx, queryReconcileChallenge, challengeId).Scan(&current, &participants, &contributions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: challenge %s", store.ErrNotFound, challengeId)
		}
		return nil, fmt.Errorf("unable to reconcile challenge: %w", err)
	}

	result := &models.ChallengeReconciliation{
		ChallengeId:      challengeId,
		CurrentAmount:    fromCents(current),
		ParticipantTotal: fromCents(participants),
		ContributionSum:  fromCents(contributions),
	}

	if !result.Balanced() {
		zap.L().Warn("Challenge totals do not reconcile",
			zap.String("challenge_id", challengeId),
			zap.String("current_amount", result.CurrentAmount.String()),
			zap.String("participant_total", result.ParticipantTotal.String()),
			zap.String("contribution_sum", result.ContributionSum.String()))
	}
	return result, nil
}
