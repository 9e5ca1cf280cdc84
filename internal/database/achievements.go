package database

import (
	"context"
	"fmt"

	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
)

// ReportProgress stores the latest progress value for an achievement code.
func (s *Service) ReportProgress(ctx context.Context, userId, code string, value int) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertAchievementProgress, userId, code, value, now()); err != nil {
		return fmt.Errorf("unable to record achievement progress: %w", err)
	}

	zap.L().Debug("Achievement progress recorded",
		zap.String("user_id", userId),
		zap.String("code", code),
		zap.Int("value", value))
	return nil
}

func (s *Service) GetAchievementProgress(ctx context.Context, userId string) (map[string]models.AchievementProgress, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAchievementProgress, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query achievement progress: %w", err)
	}

	entries, err := collect(rows, func(row scanner) (models.AchievementProgress, error) {
		var p models.AchievementProgress
		err := row.Scan(&p.UserId, &p.Code, &p.Value, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to scan achievement progress: %w", err)
	}

	progress := make(map[string]models.AchievementProgress, len(entries))
	for _, p := range entries {
		progress[p.Code] = p
	}
	return progress, nil
}
