package store

import (
	"context"
	"errors"
	"time"

	"challenge-goals-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicate              = errors.New("duplicate record")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUserNotFound           = errors.New("user not found")
)

// UpdateChallengeParams carries the creator-editable fields of a challenge.
type UpdateChallengeParams struct {
	Id              string
	Title           string
	Description     string
	TargetAmount    decimal.Decimal
	Category        string
	Deadline        time.Time
	MaxParticipants *int
	RewardPoints    int
}

// Repository is the persistence boundary for challenges, their participants
// and the records derived from them. Status transitions are guarded by the
// expected current status and report whether a row actually moved.
type Repository interface {
	// --- Challenges ---
	InsertChallenge(ctx context.Context, c *models.Challenge) error
	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
	UpdateChallengeDetails(ctx context.Context, params UpdateChallengeParams) error
	TransitionChallenge(ctx context.Context, id string, from, to models.ChallengeStatus) (bool, error)
	AddChallengeAmount(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
	CountActiveChallengesByCreator(ctx context.Context, creatorId string) (int, error)
	ListChallengesByCreator(ctx context.Context, creatorId string) ([]models.Challenge, error)
	ListChallengesByParticipant(ctx context.Context, userId string) ([]models.Challenge, error)
	ListActiveChallengesByParticipant(ctx context.Context, userId string) ([]models.Challenge, error)
	ListChallengesByStatus(ctx context.Context, status models.ChallengeStatus) ([]models.Challenge, error)
	ListAvailableChallenges(ctx context.Context) ([]models.Challenge, error)
	FailExpiredChallenges(ctx context.Context, today time.Time) (int64, error)

	// --- Participants ---
	InsertParticipant(ctx context.Context, p *models.Participant) error
	GetParticipant(ctx context.Context, challengeId, userId string) (*models.Participant, error)
	GetParticipantById(ctx context.Context, id string) (*models.Participant, error)
	ListParticipants(ctx context.Context, challengeId string) ([]models.Participant, error)
	CountActiveParticipants(ctx context.Context, challengeId string) (int, error)
	CountParticipationsByUser(ctx context.Context, userId string) (int, error)
	CountCompletedParticipationsByUser(ctx context.Context, userId string) (int, error)
	TransitionParticipant(ctx context.Context, id string, from, to models.ParticipantStatus) (bool, error)
	AddParticipantAmount(ctx context.Context, id string, amount decimal.Decimal) error
	ClaimParticipantReward(ctx context.Context, id string) (bool, error)
	DeleteParticipant(ctx context.Context, id string) error

	// --- Streaks ---
	GetStreakByParticipant(ctx context.Context, participantId string) (*models.ChallengeStreak, error)
	SaveStreak(ctx context.Context, s *models.ChallengeStreak) error
	DeactivateStreak(ctx context.Context, id string, cutoff time.Time) (bool, error)
	ListStreaksByChallenge(ctx context.Context, challengeId string) ([]models.ChallengeStreak, error)
	ListStreaksByUser(ctx context.Context, userId string) ([]models.ChallengeStreak, error)
	ListStaleStreaks(ctx context.Context, cutoff time.Time) ([]models.ChallengeStreak, error)

	// --- Contributions ---
	InsertContribution(ctx context.Context, c *models.Contribution) error
	ListContributions(ctx context.Context, challengeId string) ([]models.Contribution, error)

	// --- Reward credits ---
	EnqueueRewardCredit(ctx context.Context, rc *models.RewardCredit) (bool, error)
	ListPendingRewardCredits(ctx context.Context, challengeId string, limit int) ([]models.RewardCredit, error)
	MarkRewardCreditDelivered(ctx context.Context, id string) error
	MarkRewardCreditFailed(ctx context.Context, id string, cause error) error
}

// ChallengeStore is a Repository that can also run a unit of work. Every
// Repository call made through the callback joins the same transaction.
type ChallengeStore interface {
	Repository
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
	ReconcileChallenge(ctx context.Context, challengeId string) (*models.ChallengeReconciliation, error)
	PurgeChallenge(ctx context.Context, challengeId string) error
	Ping(ctx context.Context) error
}

// UserDirectory resolves users and credits reward points to them.
type UserDirectory interface {
	GetUser(ctx context.Context, userId string) (*models.User, error)
	// CreditPoints is idempotent by reference.
	CreditPoints(ctx context.Context, userId string, points int, reference string) error
}

// AchievementTracker receives achievement progress. Callers treat it as best-effort.
type AchievementTracker interface {
	ReportProgress(ctx context.Context, userId, code string, value int) error
}
