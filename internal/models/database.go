package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the user directory
type User struct {
	Id             string    `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Plan           Plan      `db:"plan"`
	ChallengeQuota int       `db:"-"` // derived from Plan
	PointBalance   int64     `db:"point_balance"`
	Active         bool      `db:"active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Challenge is a shared savings goal with a monetary target and deadline
type Challenge struct {
	Id              string          `db:"id"`
	CreatorId       string          `db:"creator_id"`
	Title           string          `db:"title"`
	Description     string          `db:"description"`
	TargetAmount    decimal.Decimal `db:"target_amount"`
	CurrentAmount   decimal.Decimal `db:"current_amount"`
	Category        string          `db:"category"`
	Deadline        time.Time       `db:"deadline"` // calendar date, midnight UTC
	Status          ChallengeStatus `db:"status"`
	MaxParticipants *int            `db:"max_participants"`
	RewardPoints    int             `db:"reward_points"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Participant is a user's membership and contribution record within one challenge
type Participant struct {
	Id                string            `db:"id"`
	ChallengeId       string            `db:"challenge_id"`
	UserId            string            `db:"user_id"`
	ContributedAmount decimal.Decimal   `db:"contributed_amount"`
	Status            ParticipantStatus `db:"status"`
	IsCreator         bool              `db:"is_creator"`
	RewardClaimed     bool              `db:"reward_claimed"`
	JoinedAt          time.Time         `db:"joined_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

// ChallengeStreak tracks consecutive contribution days for one participant
type ChallengeStreak struct {
	Id                   string    `db:"id"`
	ParticipantId        string    `db:"participant_id"`
	ChallengeId          string    `db:"challenge_id"`
	UserId               string    `db:"user_id"`
	CurrentStreak        int       `db:"current_streak"`
	LongestStreak        int       `db:"longest_streak"`
	LastContributionDate time.Time `db:"last_contribution_date"` // zero until the first contribution
	TotalContributions   int       `db:"total_contributions"`
	StreakActive         bool      `db:"streak_active"`
	BonusPointsEarned    int       `db:"bonus_points_earned"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// Contribution is the immutable audit row written for every applied contribution
type Contribution struct {
	Id            string          `db:"id"`
	ChallengeId   string          `db:"challenge_id"`
	ParticipantId string          `db:"participant_id"`
	UserId        string          `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"`
	Note          string          `db:"note"`
	ContributedOn time.Time       `db:"contributed_on"`
	CreatedAt     time.Time       `db:"created_at"`
}

// RewardCredit is a queued point credit waiting to be applied to a user's balance
type RewardCredit struct {
	Id            string             `db:"id"`
	Reference     string             `db:"reference"`
	Kind          RewardKind         `db:"kind"`
	UserId        string             `db:"user_id"`
	ChallengeId   string             `db:"challenge_id"`
	ParticipantId string             `db:"participant_id"`
	Points        int                `db:"points"`
	Status        RewardCreditStatus `db:"status"`
	Attempts      int                `db:"attempts"`
	LastError     string             `db:"last_error"`
	CreatedAt     time.Time          `db:"created_at"`
	DeliveredAt   *time.Time         `db:"delivered_at"`
}

// PointTransaction represents immutable point ledger history
type PointTransaction struct {
	Id            string    `db:"id"`
	UserId        string    `db:"user_id"`
	Amount        int64     `db:"amount"`
	BalanceBefore int64     `db:"balance_before"`
	BalanceAfter  int64     `db:"balance_after"`
	Reference     string    `db:"reference"`
	CreatedAt     time.Time `db:"created_at"`
}

// AchievementProgress is the last progress value reported for an achievement code
type AchievementProgress struct {
	UserId    string    `db:"user_id"`
	Code      string    `db:"code"`
	Value     int       `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ChallengeReconciliation compares the stored challenge total with its ledgers
type ChallengeReconciliation struct {
	ChallengeId      string
	CurrentAmount    decimal.Decimal
	ParticipantTotal decimal.Decimal
	ContributionSum  decimal.Decimal
}

// Balanced reports whether all three totals agree.
func (r ChallengeReconciliation) Balanced() bool {
	return r.CurrentAmount.Equal(r.ParticipantTotal) && r.CurrentAmount.Equal(r.ContributionSum)
}
