package api

import (
	"context"
	"fmt"

	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
)

// GetPointBalance returns the user's reward point balance
func (s *ChallengeService) GetPointBalance(ctx context.Context, userId string) (int64, error) {
	if userId == "" {
		return 0, fmt.Errorf("user_id is required")
	}

	user, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user", zap.String("user_id", userId), zap.Error(err))
		return 0, fmt.Errorf("failed to retrieve point balance")
	}
	return user.PointBalance, nil
}

// GetPointHistory returns paginated reward point history for a user
func (s *ChallengeService) GetPointHistory(ctx context.Context, userId string, limit, offset int) ([]models.PointRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	limit, offset = normalizePage(limit, offset)
	history, err := s.db.GetPointHistory(ctx, userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get point history", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve point history")
	}

	result := make([]models.PointRecord, len(history))
	for i, tx := range history {
		result[i] = models.PointRecord{
			Id:           tx.Id,
			Amount:       tx.Amount,
			BalanceAfter: tx.BalanceAfter,
			Reference:    tx.Reference,
			CreatedAt:    tx.CreatedAt,
		}
	}
	return result, nil
}
