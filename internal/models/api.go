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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Percent is a percentage kept to two decimal places. It prints and
// marshals in fixed form, e.g. "60.00".
type Percent struct {
	decimal.Decimal
}

func NewPercent(d decimal.Decimal) Percent {
	return Percent{Decimal: d.Round(2)}
}

func (p Percent) String() string {
	return p.StringFixed(2)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.StringFixed(2) + `"`), nil
}

// ChallengeView is the projection returned to the web layer
type ChallengeView struct {
	Id                 string            `json:"id"`
	CreatorId          string            `json:"creator_id"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	TargetAmount       decimal.Decimal   `json:"target_amount"`
	CurrentAmount      decimal.Decimal   `json:"current_amount"`
	ProgressPercentage Percent           `json:"progress_percentage"`
	Category           string            `json:"category,omitempty"`
	Deadline           string            `json:"deadline"` // YYYY-MM-DD
	Status             string            `json:"status"`
	MaxParticipants    *int              `json:"max_participants,omitempty"`
	ParticipantCount   int               `json:"participant_count"`
	RewardPoints       int               `json:"reward_points"`
	// TopContributors holds up to three participants with a positive
	// contribution, highest first. Members who have not contributed are left out.
	TopContributors    []ContributorView `json:"top_contributors"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ContributorView is one entry of a challenge's contribution ranking
type ContributorView struct {
	UserId                 string          `json:"user_id"`
	ContributedAmount      decimal.Decimal `json:"contributed_amount"`
	ContributionPercentage Percent         `json:"contribution_percentage"`
}

// ParticipantView represents a participant in a ranked listing
type ParticipantView struct {
	Id                     string          `json:"id"`
	ChallengeId            string          `json:"challenge_id"`
	UserId                 string          `json:"user_id"`
	ContributedAmount      decimal.Decimal `json:"contributed_amount"`
	ContributionPercentage Percent         `json:"contribution_percentage"`
	Status                 string          `json:"status"`
	IsCreator              bool            `json:"is_creator"`
	RewardClaimed          bool            `json:"reward_claimed"`
	JoinedAt               time.Time       `json:"joined_at"`
}

// StreakView represents a participant's streak after staleness has been applied
type StreakView struct {
	Id                   string `json:"id"`
	ParticipantId        string `json:"participant_id"`
	ChallengeId          string `json:"challenge_id"`
	UserId               string `json:"user_id"`
	CurrentStreak        int    `json:"current_streak"`
	LongestStreak        int    `json:"longest_streak"`
	LastContributionDate string `json:"last_contribution_date,omitempty"`
	TotalContributions   int    `json:"total_contributions"`
	StreakActive         bool   `json:"streak_active"`
	BonusPointsEarned    int    `json:"bonus_points_earned"`
	TierBonus            int    `json:"tier_bonus"`
}

// SweepReport summarizes one run of the daily maintenance sweep
type SweepReport struct {
	ChallengesFailed int64 `json:"challenges_failed"`
	StreaksExpired   int   `json:"streaks_expired"`
	RewardsDelivered int   `json:"rewards_delivered"`
}

// PointRecord represents one reward point movement for API responses
type PointRecord struct {
	Id           string    `json:"id"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Reference    string    `json:"reference"`
	CreatedAt    time.Time `json:"created_at"`
}

// ContributionRecord represents one applied contribution for API responses
type ContributionRecord struct {
	Id            string          `json:"id"`
	UserId        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note,omitempty"`
	ContributedOn string          `json:"contributed_on"` // YYYY-MM-DD
	CreatedAt     time.Time       `json:"created_at"`
}
