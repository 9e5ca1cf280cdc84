package models

import "fmt"

// ChallengeStatus is the lifecycle state of a group challenge.
type ChallengeStatus int

const (
	ChallengeActive ChallengeStatus = iota + 1
	ChallengeCompleted
	ChallengeFailed
	ChallengeCancelled
)

// ParticipantStatus is the membership state of a user within one challenge.
type ParticipantStatus int

const (
	ParticipantActive ParticipantStatus = iota + 1
	ParticipantCompleted
	ParticipantLeft
)

// RewardKind distinguishes the two sources of reward points.
type RewardKind int

const (
	RewardChallenge RewardKind = iota + 1
	RewardStreakBonus
)

// RewardCreditStatus tracks delivery of a queued reward credit.
type RewardCreditStatus int

const (
	RewardPending RewardCreditStatus = iota + 1
	RewardDelivered
)

// Plan is the subscription plan a user is on.
type Plan int

const (
	PlanFree Plan = iota + 1
	PlanStandard
	PlanPlus
)

// Storage and wire names. These tables are the only place the string forms live.
var (
	challengeStatusNames = map[ChallengeStatus]string{
		ChallengeActive:    "active",
		ChallengeCompleted: "completed",
		ChallengeFailed:    "failed",
		ChallengeCancelled: "cancelled",
	}
	challengeStatusLabels = map[ChallengeStatus]string{
		ChallengeActive:    "Active",
		ChallengeCompleted: "Completed",
		ChallengeFailed:    "Failed",
		ChallengeCancelled: "Cancelled",
	}
	participantStatusNames = map[ParticipantStatus]string{
		ParticipantActive:    "active",
		ParticipantCompleted: "completed",
		ParticipantLeft:      "left",
	}
	rewardKindNames = map[RewardKind]string{
		RewardChallenge:   "challenge_reward",
		RewardStreakBonus: "streak_bonus",
	}
	rewardCreditStatusNames = map[RewardCreditStatus]string{
		RewardPending:   "pending",
		RewardDelivered: "delivered",
	}
	planNames = map[Plan]string{
		PlanFree:     "free",
		PlanStandard: "standard",
		PlanPlus:     "plus",
	}

	challengeStatusByName    = invert(challengeStatusNames)
	participantStatusByName  = invert(participantStatusNames)
	rewardKindByName         = invert(rewardKindNames)
	rewardCreditStatusByName = invert(rewardCreditStatusNames)
	planByName               = invert(planNames)
)

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func lookup[K comparable](m map[string]K, kind, name string) (K, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	var zero K
	return zero, fmt.Errorf("unknown %s %q", kind, name)
}

func FormatChallengeStatus(s ChallengeStatus) string { return challengeStatusNames[s] }

// ChallengeStatusLabel returns the human readable form used in reports.
func ChallengeStatusLabel(s ChallengeStatus) string { return challengeStatusLabels[s] }

func ParseChallengeStatus(name string) (ChallengeStatus, error) {
	return lookup(challengeStatusByName, "challenge status", name)
}

func FormatParticipantStatus(s ParticipantStatus) string { return participantStatusNames[s] }

func ParseParticipantStatus(name string) (ParticipantStatus, error) {
	return lookup(participantStatusByName, "participant status", name)
}

func FormatRewardKind(k RewardKind) string { return rewardKindNames[k] }

func ParseRewardKind(name string) (RewardKind, error) {
	return lookup(rewardKindByName, "reward kind", name)
}

func FormatRewardCreditStatus(s RewardCreditStatus) string { return rewardCreditStatusNames[s] }

func ParseRewardCreditStatus(name string) (RewardCreditStatus, error) {
	return lookup(rewardCreditStatusByName, "reward credit status", name)
}

func FormatPlan(p Plan) string { return planNames[p] }

func ParsePlan(name string) (Plan, error) {
	return lookup(planByName, "plan", name)
}

// IsTerminal reports whether no further transition is allowed out of s.
func IsTerminal(s ChallengeStatus) bool {
	return s == ChallengeCompleted || s == ChallengeFailed || s == ChallengeCancelled
}
