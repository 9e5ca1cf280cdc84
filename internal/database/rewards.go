package database

import (
	"context"
	"database/sql"
	"fmt"

	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
)

func scanRewardCredit(row scanner) (models.RewardCredit, error) {
	var (
		rc           models.RewardCredit
		kind, status string
		deliveredAt  sql.NullTime
	)
	err := row.Scan(&rc.Id, &rc.Reference, &kind, &rc.UserId, &rc.ChallengeId, &rc.ParticipantId,
		&rc.Points, &status, &rc.Attempts, &rc.LastError, &rc.CreatedAt, &deliveredAt)
	if err != nil {
		return rc, err
	}

	if rc.Kind, err = models.ParseRewardKind(kind); err != nil {
		return rc, err
	}
	if rc.Status, err = models.ParseRewardCreditStatus(status); err != nil {
		return rc, err
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		rc.DeliveredAt = &t
	}
	return rc, nil
}

// EnqueueRewardCredit stores a pending credit. The reference is unique, so
// enqueueing the same credit twice is a no-op that reports false.
func (r *repository) EnqueueRewardCredit(ctx context.Context, rc *models.RewardCredit) (bool, error) {
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = now()
	}
	rc.Status = models.RewardPending

	result, err := r.q.ExecContext(ctx, queryInsertRewardCredit,
		rc.Id, rc.Reference, models.FormatRewardKind(rc.Kind), rc.UserId, rc.ChallengeId, rc.ParticipantId,
		rc.Points, models.FormatRewardCreditStatus(rc.Status), rc.CreatedAt)
	if err != nil {
		zap.L().Error("Failed to enqueue reward credit", zap.String("reference", rc.Reference), zap.Error(err))
		return false, fmt.Errorf("unable to enqueue reward credit: %w", err)
	}

	inserted, err := rowsChanged(result)
	if err != nil {
		return false, err
	}
	if !inserted {
		zap.L().Debug("Reward credit already queued", zap.String("reference", rc.Reference))
	}
	return inserted, nil
}

// ListPendingRewardCredits returns undelivered credits with the fewest failed
// attempts first, then oldest first, so credits that keep failing cannot fill
// every batch. An empty challengeId lists across all challenges.
func (r *repository) ListPendingRewardCredits(ctx context.Context, challengeId string, limit int) ([]models.RewardCredit, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.q.QueryContext(ctx, queryListPendingRewardCredits,
		models.FormatRewardCreditStatus(models.RewardPending), challengeId, challengeId, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query reward credits: %w", err)
	}

	credits, err := collect(rows, scanRewardCredit)
	if err != nil {
		return nil, fmt.Errorf("unable to scan reward credit row: %w", err)
	}
	return credits, nil
}

func (r *repository) MarkRewardCreditDelivered(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, queryMarkRewardCreditDelivered,
		models.FormatRewardCreditStatus(models.RewardDelivered), now(),
		id, models.FormatRewardCreditStatus(models.RewardPending))
	if err != nil {
		return fmt.Errorf("unable to mark reward credit delivered: %w", err)
	}
	return nil
}

func (r *repository) MarkRewardCreditFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	_, err := r.q.ExecContext(ctx, queryMarkRewardCreditFailed,
		msg, id, models.FormatRewardCreditStatus(models.RewardPending))
	if err != nil {
		return fmt.Errorf("unable to record reward credit failure: %w", err)
	}
	return nil
}
