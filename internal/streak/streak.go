// Package streak holds the day-based contribution streak rules. It has no I/O;
// callers load and persist models.ChallengeStreak themselves.
package streak

import (
	"time"

	"challenge-goals-go/internal/models"
)

const (
	// BonusInterval is the streak length at whose multiples a flat bonus is earned.
	BonusInterval = 7
	// BonusPoints is the flat bonus added for every BonusInterval consecutive days.
	BonusPoints = 50
)

// Change describes what a contribution did to the streak.
type Change int

const (
	Started Change = iota + 1
	Extended
	SameDay
	Restarted
)

// Result is returned alongside the updated streak.
type Result struct {
	Change       Change
	BonusAwarded int
}

var tiers = []struct {
	minDays int
	points  int
}{
	{30, 200},
	{14, 100},
	{7, 50},
	{3, 20},
}

// Date truncates t to its calendar date at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from one date to another.
// It is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// UpdateOnContribution applies one contribution made on today.
//
// A backdated contribution (today before the last recorded date) counts like a
// same-day repeat and never moves the last date backwards.
func UpdateOnContribution(s models.ChallengeStreak, today time.Time) (models.ChallengeStreak, Result) {
	today = Date(today)
	var res Result

	if s.LastContributionDate.IsZero() {
		s.CurrentStreak = 1
		s.TotalContributions = 1
		res.Change = Started
	} else {
		switch delta := DaysBetween(s.LastContributionDate, today); {
		case delta == 1:
			s.CurrentStreak++
			s.TotalContributions++
			res.Change = Extended
		case delta > 1:
			s.CurrentStreak = 1
			s.TotalContributions++
			res.Change = Restarted
		default:
			s.TotalContributions++
			res.Change = SameDay
		}
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	if today.After(s.LastContributionDate) {
		s.LastContributionDate = today
	}
	s.StreakActive = true

	if res.Change != SameDay && s.CurrentStreak > 0 && s.CurrentStreak%BonusInterval == 0 {
		s.BonusPointsEarned += BonusPoints
		res.BonusAwarded = BonusPoints
	}

	return s, res
}

// CheckAndExpire marks the streak inactive once more than one day has passed
// since the last contribution. Counters are left untouched. The second return
// value reports whether the flag flipped.
func CheckAndExpire(s models.ChallengeStreak, today time.Time) (models.ChallengeStreak, bool) {
	if !s.StreakActive || s.LastContributionDate.IsZero() {
		return s, false
	}
	if DaysBetween(s.LastContributionDate, today) > 1 {
		s.StreakActive = false
		return s, true
	}
	return s, false
}

// TierBonus maps a current streak length to its display reward tier.
func TierBonus(current int) int {
	for _, t := range tiers {
		if current >= t.minDays {
			return t.points
		}
	}
	return 0
}

// ExpiryCutoff returns the last contribution date that still counts as live on today.
func ExpiryCutoff(today time.Time) time.Time {
	return Date(today).AddDate(0, 0, -1)
}
