package api

import (
	"context"
	"fmt"

	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
)

// GetParticipantStreak returns a participant's streak with staleness applied
func (s *ChallengeService) GetParticipantStreak(ctx context.Context, participantId string) (*models.StreakView, error) {
	if participantId == "" {
		return nil, fmt.Errorf("participant_id is required")
	}

	view, err := s.engine.GetStreakByParticipant(ctx, participantId)
	if err != nil {
		return nil, publicError(err, "failed to retrieve streak", zap.String("participant_id", participantId))
	}
	return view, nil
}

func (s *ChallengeService) GetChallengeStreaks(ctx context.Context, challengeId string) ([]models.StreakView, error) {
	if challengeId == "" {
		return nil, fmt.Errorf("challenge_id is required")
	}

	views, err := s.engine.ListChallengeStreaks(ctx, challengeId)
	if err != nil {
		return nil, publicError(err, "failed to retrieve streaks", zap.String("challenge_id", challengeId))
	}
	return views, nil
}

func (s *ChallengeService) GetUserStreaks(ctx context.Context, userId string) ([]models.StreakView, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	views, err := s.engine.ListUserStreaks(ctx, userId)
	if err != nil {
		return nil, publicError(err, "failed to retrieve streaks", zap.String("user_id", userId))
	}
	return views, nil
}
