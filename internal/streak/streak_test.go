package streak

import (
	"testing"
	"time"

	"challenge-goals-go/internal/models"
)

func day(n int) time.Time {
	return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

func TestUpdateOnContribution_FirstContribution(t *testing.T) {
	s, res := UpdateOnContribution(models.ChallengeStreak{}, day(1))

	if res.Change != Started {
		t.Errorf("Expected Started, got %d", res.Change)
	}
	if s.CurrentStreak != 1 || s.TotalContributions != 1 || s.LongestStreak != 1 {
		t.Errorf("Expected 1/1/1, got current=%d total=%d longest=%d", s.CurrentStreak, s.TotalContributions, s.LongestStreak)
	}
	if !s.StreakActive {
		t.Error("Expected streak to be active")
	}
	if !s.LastContributionDate.Equal(day(1)) {
		t.Errorf("Expected last date %v, got %v", day(1), s.LastContributionDate)
	}
}

func TestUpdateOnContribution_StreakLaw(t *testing.T) {
	tests := []struct {
		name        string
		next        time.Time
		wantChange  Change
		wantCurrent int
		wantTotal   int
	}{
		{"same day repeat", day(5), SameDay, 3, 6},
		{"consecutive day", day(6), Extended, 4, 6},
		{"two day gap", day(7), Restarted, 1, 6},
		{"long gap", day(30), Restarted, 1, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := models.ChallengeStreak{
				CurrentStreak:        3,
				LongestStreak:        5,
				TotalContributions:   5,
				LastContributionDate: day(5),
				StreakActive:         true,
			}

			s, res := UpdateOnContribution(start, tt.next)
			if res.Change != tt.wantChange {
				t.Errorf("Expected change %d, got %d", tt.wantChange, res.Change)
			}
			if s.CurrentStreak != tt.wantCurrent {
				t.Errorf("Expected current %d, got %d", tt.wantCurrent, s.CurrentStreak)
			}
			if s.TotalContributions != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, s.TotalContributions)
			}
			if s.LongestStreak < s.CurrentStreak {
				t.Errorf("Longest %d below current %d", s.LongestStreak, s.CurrentStreak)
			}
		})
	}
}

func TestUpdateOnContribution_GapScenario(t *testing.T) {
	var s models.ChallengeStreak

	s, _ = UpdateOnContribution(s, day(1))
	if s.CurrentStreak != 1 {
		t.Fatalf("Day 1: expected streak 1, got %d", s.CurrentStreak)
	}

	s, _ = UpdateOnContribution(s, day(2))
	if s.CurrentStreak != 2 {
		t.Fatalf("Day 2: expected streak 2, got %d", s.CurrentStreak)
	}

	s, _ = UpdateOnContribution(s, day(4))
	if s.CurrentStreak != 1 {
		t.Errorf("Day 4: expected streak reset to 1, got %d", s.CurrentStreak)
	}
	if s.TotalContributions != 3 {
		t.Errorf("Expected total 3, got %d", s.TotalContributions)
	}
	if s.LongestStreak != 2 {
		t.Errorf("Expected longest 2, got %d", s.LongestStreak)
	}
}

func TestUpdateOnContribution_BackdatedCountsAsSameDay(t *testing.T) {
	start := models.ChallengeStreak{
		CurrentStreak:        2,
		LongestStreak:        2,
		TotalContributions:   2,
		LastContributionDate: day(10),
		StreakActive:         true,
	}

	s, res := UpdateOnContribution(start, day(8))
	if res.Change != SameDay {
		t.Errorf("Expected SameDay, got %d", res.Change)
	}
	if s.CurrentStreak != 2 || s.TotalContributions != 3 {
		t.Errorf("Expected current=2 total=3, got current=%d total=%d", s.CurrentStreak, s.TotalContributions)
	}
	if !s.LastContributionDate.Equal(day(10)) {
		t.Errorf("Last date moved backwards to %v", s.LastContributionDate)
	}
}

func TestUpdateOnContribution_WeeklyBonus(t *testing.T) {
	var s models.ChallengeStreak
	awarded := 0

	for d := 1; d <= 14; d++ {
		var res Result
		s, res = UpdateOnContribution(s, day(d))
		awarded += res.BonusAwarded

		switch d {
		case 7, 14:
			if res.BonusAwarded != BonusPoints {
				t.Errorf("Day %d: expected bonus %d, got %d", d, BonusPoints, res.BonusAwarded)
			}
		default:
			if res.BonusAwarded != 0 {
				t.Errorf("Day %d: unexpected bonus %d", d, res.BonusAwarded)
			}
		}
	}

	if s.BonusPointsEarned != 100 || awarded != 100 {
		t.Errorf("Expected 100 bonus points, got earned=%d awarded=%d", s.BonusPointsEarned, awarded)
	}

	// A second contribution on day 14 does not earn the bonus again.
	s, res := UpdateOnContribution(s, day(14))
	if res.BonusAwarded != 0 || s.BonusPointsEarned != 100 {
		t.Errorf("Same-day repeat earned bonus: awarded=%d earned=%d", res.BonusAwarded, s.BonusPointsEarned)
	}
}

func TestCheckAndExpire(t *testing.T) {
	live := models.ChallengeStreak{
		CurrentStreak:        4,
		LongestStreak:        6,
		LastContributionDate: day(10),
		StreakActive:         true,
	}

	if _, changed := CheckAndExpire(live, day(10)); changed {
		t.Error("Same day should not expire")
	}
	if _, changed := CheckAndExpire(live, day(11)); changed {
		t.Error("Next day should not expire")
	}

	s, changed := CheckAndExpire(live, day(12))
	if !changed || s.StreakActive {
		t.Fatal("Expected streak to expire after a two day gap")
	}
	if s.CurrentStreak != 4 || s.LongestStreak != 6 {
		t.Errorf("Counters changed on expiry: current=%d longest=%d", s.CurrentStreak, s.LongestStreak)
	}

	// Idempotent and forward only.
	if _, changed := CheckAndExpire(s, day(20)); changed {
		t.Error("Expired streak reported another change")
	}
}

func TestTierBonus(t *testing.T) {
	tests := []struct {
		current int
		want    int
	}{
		{0, 0}, {2, 0}, {3, 20}, {6, 20}, {7, 50}, {13, 50}, {14, 100}, {29, 100}, {30, 200}, {365, 200},
	}
	for _, tt := range tests {
		if got := TierBonus(tt.current); got != tt.want {
			t.Errorf("TierBonus(%d) = %d, want %d", tt.current, got, tt.want)
		}
	}
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2025, time.March, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 2, 0, 1, 0, 0, time.UTC)
	if got := DaysBetween(from, to); got != 1 {
		t.Errorf("Expected 1 day, got %d", got)
	}
	if got := DaysBetween(to, from); got != -1 {
		t.Errorf("Expected -1 day, got %d", got)
	}
}
