package challenge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"challenge-goals-go/internal/clock"
	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"
)

func TestSweep_FailsExpiredAndExpiresStreaks(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	ctx := context.Background()

	expiring, err := f.engine.CreateChallenge(ctx, CreateParams{
		CreatorId:    "alice",
		Title:        "Expiring",
		TargetAmount: money("100"),
		Deadline:     f.clock.Today().AddDate(0, 0, 2),
	})
	if err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}
	f.contribute(t, "alice", expiring.Id, "10")

	done := f.create(t, "alice", "5", nil)
	f.contribute(t, "alice", done.Id, "5")

	long := f.create(t, "bob", "100", nil)

	f.clock.Advance(5)
	report, err := f.engine.SweepExpiredChallengesAndStreaks(ctx, f.clock.Today())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if report.ChallengesFailed != 1 {
		t.Errorf("Expected 1 failed challenge, got %d", report.ChallengesFailed)
	}
	if report.StreaksExpired != 2 {
		t.Errorf("Expected 2 expired streaks, got %d", report.StreaksExpired)
	}

	want := map[string]string{expiring.Id: "failed", done.Id: "completed", long.Id: "active"}
	for id, status := range want {
		view, err := f.engine.GetChallenge(ctx, id)
		if err != nil {
			t.Fatalf("GetChallenge failed: %v", err)
		}
		if view.Status != status {
			t.Errorf("%s: expected %s, got %s", id, status, view.Status)
		}
	}

	p := f.participant(t, expiring.Id, "alice")
	s, err := f.engine.GetStreakByParticipant(ctx, p.Id)
	if err != nil {
		t.Fatalf("GetStreakByParticipant failed: %v", err)
	}
	if s.StreakActive {
		t.Error("Expected streak to be inactive after sweep")
	}
	if s.CurrentStreak != 1 || s.LongestStreak != 1 {
		t.Errorf("Sweep touched counters: current=%d longest=%d", s.CurrentStreak, s.LongestStreak)
	}

	// A second run has nothing left to move.
	report, err = f.engine.SweepExpiredChallengesAndStreaks(ctx, f.clock.Today())
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if report.ChallengesFailed != 0 || report.StreaksExpired != 0 {
		t.Errorf("Expected idempotent sweep, got %+v", report)
	}
}

func TestSweep_LeavesLiveStreaks(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	ctx := context.Background()
	c := f.create(t, "alice", "100", nil)
	f.contribute(t, "alice", c.Id, "1")

	f.clock.Advance(1)
	report, err := f.engine.SweepExpiredChallengesAndStreaks(ctx, f.clock.Today())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if report.StreaksExpired != 0 {
		t.Errorf("Expected yesterday's streak to stay live, got %d expired", report.StreaksExpired)
	}

	// Contributing today continues the streak.
	f.contribute(t, "alice", c.Id, "1")
	p := f.participant(t, c.Id, "alice")
	s, _ := f.engine.GetStreakByParticipant(ctx, p.Id)
	if s.CurrentStreak != 2 {
		t.Errorf("Expected streak 2, got %d", s.CurrentStreak)
	}
}

func TestSweep_RetriesPendingRewards(t *testing.T) {
	users := &flakyUsers{fail: true}
	f, cleanup := newFixture(t, users, nil)
	defer cleanup()

	ctx := context.Background()
	c := f.create(t, "alice", "10", nil)
	f.contribute(t, "alice", c.Id, "10")

	users.fail = false
	report, err := f.engine.SweepExpiredChallengesAndStreaks(ctx, f.clock.Today())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if report.RewardsDelivered != 1 {
		t.Errorf("Expected 1 delivered reward, got %d", report.RewardsDelivered)
	}
	if got := f.balance(t, "alice"); got != DefaultRewardPoints {
		t.Errorf("Expected %d points, got %d", DefaultRewardPoints, got)
	}
}

func TestRecordActivity(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	ctx := context.Background()
	c := f.create(t, "alice", "100", nil)
	f.join(t, "bob", c.Id)
	f.contribute(t, "alice", c.Id, "1")
	alice := f.participant(t, c.Id, "alice")
	bob := f.participant(t, c.Id, "bob")

	changed, err := f.engine.RecordActivity(ctx, alice.Id)
	if err != nil || changed {
		t.Fatalf("Expected fresh streak untouched, changed=%v err=%v", changed, err)
	}

	f.clock.Advance(3)
	changed, err = f.engine.RecordActivity(ctx, alice.Id)
	if err != nil || !changed {
		t.Fatalf("Expected stale streak to expire, changed=%v err=%v", changed, err)
	}

	changed, _ = f.engine.RecordActivity(ctx, alice.Id)
	if changed {
		t.Error("Expected second call to be a no-op")
	}

	_, err = f.engine.RecordActivity(ctx, bob.Id)
	expectError(t, err, NotFound, ErrStreakNotFound)

	_, err = f.engine.RecordActivity(ctx, "missing")
	expectError(t, err, NotFound, ErrParticipantNotFound)
}

func TestStreakQueries_ApplyExpiry(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	ctx := context.Background()
	c := f.create(t, "alice", "100", nil)
	f.join(t, "bob", c.Id)

	f.contribute(t, "alice", c.Id, "1")
	f.contribute(t, "bob", c.Id, "1")
	f.clock.Advance(1)
	f.contribute(t, "bob", c.Id, "1")
	f.clock.Advance(1)

	streaks, err := f.engine.ListChallengeStreaks(ctx, c.Id)
	if err != nil {
		t.Fatalf("ListChallengeStreaks failed: %v", err)
	}
	if len(streaks) != 2 {
		t.Fatalf("Expected 2 streaks, got %d", len(streaks))
	}
	if streaks[0].UserId != "bob" || streaks[0].CurrentStreak != 2 || !streaks[0].StreakActive {
		t.Errorf("Expected bob first with an active streak of 2, got %+v", streaks[0])
	}
	if streaks[1].UserId != "alice" || streaks[1].StreakActive {
		t.Errorf("Expected alice's streak to have expired, got %+v", streaks[1])
	}

	// The expiry was persisted, so the sweep finds nothing to do.
	report, err := f.engine.SweepExpiredChallengesAndStreaks(ctx, f.clock.Today())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if report.StreaksExpired != 0 {
		t.Errorf("Expected expiry already persisted, sweep expired %d", report.StreaksExpired)
	}

	mine, err := f.engine.ListUserStreaks(ctx, "bob")
	if err != nil || len(mine) != 1 {
		t.Fatalf("Expected 1 streak for bob, got %d (err=%v)", len(mine), err)
	}

	_, err = f.engine.ListChallengeStreaks(ctx, "missing")
	expectError(t, err, NotFound, ErrChallengeNotFound)
}

func TestChallengeListings(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	ctx := context.Background()
	full := f.create(t, "alice", "100", intPtr(2))
	f.join(t, "bob", full.Id)
	open := f.create(t, "alice", "100", nil)
	mine := f.create(t, "bob", "100", nil)

	available, err := f.engine.ListAvailableChallenges(ctx)
	if err != nil {
		t.Fatalf("ListAvailableChallenges failed: %v", err)
	}
	ids := map[string]bool{}
	for _, v := range available {
		ids[v.Id] = true
	}
	if ids[full.Id] || !ids[open.Id] || !ids[mine.Id] {
		t.Errorf("Unexpected available set: %v", ids)
	}

	bobs, err := f.engine.ListMyChallenges(ctx, "bob")
	if err != nil || len(bobs) != 2 {
		t.Fatalf("Expected bob in 2 challenges, got %d (err=%v)", len(bobs), err)
	}

	if err := f.engine.LeaveChallenge(ctx, "bob", full.Id); err != nil {
		t.Fatalf("LeaveChallenge failed: %v", err)
	}
	active, err := f.engine.ListActiveChallenges(ctx, "bob")
	if err != nil || len(active) != 1 || active[0].Id != mine.Id {
		t.Errorf("Expected only bob's own challenge active, got %d (err=%v)", len(active), err)
	}

	created, err := f.engine.ListChallengesByCreator(ctx, "alice")
	if err != nil || len(created) != 2 {
		t.Errorf("Expected alice to have created 2, got %d (err=%v)", len(created), err)
	}
}

// rejectingUsers fails every credit for one user.
type rejectingUsers struct {
	store.UserDirectory
	reject string
}

func (u *rejectingUsers) CreditPoints(ctx context.Context, userId string, points int, reference string) error {
	if userId == u.reject {
		return errors.New("account closed")
	}
	return u.UserDirectory.CreditPoints(ctx, userId, points, reference)
}

func TestDeliverPendingRewards_FailingCreditsDoNotStarveOthers(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	engine, err := NewEngine(Config{
		Store: db,
		Users: &rejectingUsers{UserDirectory: db, reject: "carol"},
		Clock: clock.NewFixed(startDay),
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	queued := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	for i, userId := range []string{"carol", "carol", "bob"} {
		_, err := db.EnqueueRewardCredit(ctx, &models.RewardCredit{
			Id:            fmt.Sprintf("rc%d", i),
			Reference:     fmt.Sprintf("challenge-reward:p%d", i),
			Kind:          models.RewardChallenge,
			UserId:        userId,
			ChallengeId:   "c1",
			ParticipantId: fmt.Sprintf("p%d", i),
			Points:        10,
			CreatedAt:     queued.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("EnqueueRewardCredit failed: %v", err)
		}
	}

	total := 0
	for round := 0; round < 3; round++ {
		delivered, _ := engine.DeliverPendingRewards(ctx, "", 2)
		total += delivered
	}
	if total != 1 {
		t.Errorf("Expected bob's credit delivered once, got %d deliveries", total)
	}

	bob, err := db.GetUser(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if bob.PointBalance != 10 {
		t.Errorf("Expected bob to have 10 points, got %d", bob.PointBalance)
	}

	pending, err := db.ListPendingRewardCredits(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListPendingRewardCredits failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected carol's 2 credits still pending, got %d", len(pending))
	}
	for _, rc := range pending {
		if rc.UserId != "carol" || rc.Attempts == 0 || rc.LastError != "account closed" {
			t.Errorf("Unexpected pending credit: %+v", rc)
		}
	}
}
