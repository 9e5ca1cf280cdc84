/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"
	"time"

	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
)

// GetChallenge returns one challenge with its progress and top contributors
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeId string) (*models.ChallengeView, error) {
	if challengeId == "" {
		return nil, fmt.Errorf("challenge_id is required")
	}

	view, err := s.engine.GetChallenge(ctx, challengeId)
	if err != nil {
		return nil, publicError(err, "failed to retrieve challenge", zap.String("challenge_id", challengeId))
	}
	return view, nil
}

// ListAvailableChallenges returns a page of joinable challenges, newest first
func (s *ChallengeService) ListAvailableChallenges(ctx context.Context, limit, offset int) ([]models.ChallengeView, error) {
	views, err := s.engine.ListAvailableChallenges(ctx)
	if err != nil {
		return nil, publicError(err, "failed to retrieve available challenges")
	}
	return page(views, limit, offset), nil
}

// ListUserChallenges returns the user's challenges. With activeOnly set, only
// active challenges the user is still an active member of are returned.
func (s *ChallengeService) ListUserChallenges(ctx context.Context, userId string, activeOnly bool) ([]models.ChallengeView, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	var (
		views []models.ChallengeView
		err   error
	)
	if activeOnly {
		views, err = s.engine.ListActiveChallenges(ctx, userId)
	} else {
		views, err = s.engine.ListMyChallenges(ctx, userId)
	}
	if err != nil {
		return nil, publicError(err, "failed to retrieve user challenges", zap.String("user_id", userId))
	}
	return views, nil
}

// ListParticipants returns a challenge's participants ranked by contribution
func (s *ChallengeService) ListParticipants(ctx context.Context, challengeId string, limit, offset int) ([]models.ParticipantView, error) {
	if challengeId == "" {
		return nil, fmt.Errorf("challenge_id is required")
	}

	participants, err := s.engine.ListParticipants(ctx, challengeId)
	if err != nil {
		return nil, publicError(err, "failed to retrieve participants", zap.String("challenge_id", challengeId))
	}
	return page(participants, limit, offset), nil
}

// ListChallengesByStatus returns a page of challenges in the given status
// ("active", "completed", "failed" or "cancelled")
func (s *ChallengeService) ListChallengesByStatus(ctx context.Context, status string, limit, offset int) ([]models.ChallengeView, error) {
	parsed, err := models.ParseChallengeStatus(status)
	if err != nil {
		return nil, fmt.Errorf("invalid status: %q", status)
	}

	views, err := s.engine.ListChallengesByStatus(ctx, parsed)
	if err != nil {
		return nil, publicError(err, "failed to retrieve challenges", zap.String("status", status))
	}
	return page(views, limit, offset), nil
}

// ListContributions returns a page of a challenge's contribution history, oldest first
func (s *ChallengeService) ListContributions(ctx context.Context, challengeId string, limit, offset int) ([]models.ContributionRecord, error) {
	if challengeId == "" {
		return nil, fmt.Errorf("challenge_id is required")
	}

	contributions, err := s.engine.ListContributions(ctx, challengeId)
	if err != nil {
		return nil, publicError(err, "failed to retrieve contributions", zap.String("challenge_id", challengeId))
	}

	contributions = page(contributions, limit, offset)
	result := make([]models.ContributionRecord, len(contributions))
	for i, c := range contributions {
		result[i] = models.ContributionRecord{
			Id:            c.Id,
			UserId:        c.UserId,
			Amount:        c.Amount,
			Note:          c.Note,
			ContributedOn: c.ContributedOn.Format(time.DateOnly),
			CreatedAt:     c.CreatedAt,
		}
	}
	return result, nil
}

// VerifyChallengeTotals reports whether a challenge's total matches its participant and contribution ledgers
func (s *ChallengeService) VerifyChallengeTotals(ctx context.Context, challengeId string) (bool, error) {
	if challengeId == "" {
		return false, fmt.Errorf("challenge_id is required")
	}

	rec, err := s.db.ReconcileChallenge(ctx, challengeId)
	if err != nil {
		zap.L().Error("Failed to reconcile challenge", zap.String("challenge_id", challengeId), zap.Error(err))
		return false, fmt.Errorf("failed to reconcile challenge")
	}
	return rec.Balanced(), nil
}
