package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	service := newService(db, nil)
	if err := service.initSchema(ctx, false); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	if err := service.points.InitSchema(ctx); err != nil {
		t.Fatalf("Failed to create points ledger schema: %v", err)
	}

	_, err = db.Exec("INSERT INTO users (id, name, email, plan) VALUES (?, ?, ?, ?)",
		"user1", "Test User", "test@example.com", "standard")
	if err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func testDate(offset int) time.Time {
	return time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func insertTestChallenge(t *testing.T, svc *Service, id, creator string, target string, deadline time.Time, max *int) *models.Challenge {
	t.Helper()
	ts := time.Now().UTC()
	c := &models.Challenge{
		Id:              id,
		CreatorId:       creator,
		Title:           "Trip fund " + id,
		TargetAmount:    decimal.RequireFromString(target),
		CurrentAmount:   decimal.Zero,
		Deadline:        deadline,
		Status:          models.ChallengeActive,
		MaxParticipants: max,
		RewardPoints:    100,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := svc.InsertChallenge(context.Background(), c); err != nil {
		t.Fatalf("Failed to insert challenge %s: %v", id, err)
	}
	return c
}

func insertTestParticipant(t *testing.T, svc *Service, id, challengeId, userId string, creator bool) *models.Participant {
	t.Helper()
	ts := time.Now().UTC()
	p := &models.Participant{
		Id:                id,
		ChallengeId:       challengeId,
		UserId:            userId,
		ContributedAmount: decimal.Zero,
		Status:            models.ParticipantActive,
		IsCreator:         creator,
		JoinedAt:          ts,
		UpdatedAt:         ts,
	}
	if err := svc.InsertParticipant(context.Background(), p); err != nil {
		t.Fatalf("Failed to insert participant %s: %v", id, err)
	}
	return p
}

func intPtr(v int) *int { return &v }

func TestChallenge_InsertAndGet(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "1234.56", testDate(30), intPtr(5))

	got, err := svc.GetChallenge(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}

	if !got.TargetAmount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("Expected target 1234.56, got %s", got.TargetAmount)
	}
	if !got.CurrentAmount.IsZero() {
		t.Errorf("Expected zero current amount, got %s", got.CurrentAmount)
	}
	if !got.Deadline.Equal(testDate(30)) {
		t.Errorf("Expected deadline %v, got %v", testDate(30), got.Deadline)
	}
	if got.Status != models.ChallengeActive {
		t.Errorf("Expected active status, got %s", models.FormatChallengeStatus(got.Status))
	}
	if got.MaxParticipants == nil || *got.MaxParticipants != 5 {
		t.Errorf("Expected max participants 5, got %v", got.MaxParticipants)
	}
}

func TestChallenge_NotFound(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := svc.GetChallenge(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddChallengeAmount_IsExact(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "100.00", testDate(30), nil)

	var total decimal.Decimal
	var err error
	for i := 0; i < 10; i++ {
		total, err = svc.AddChallengeAmount(ctx, "c1", decimal.RequireFromString("0.10"))
		if err != nil {
			t.Fatalf("AddChallengeAmount failed: %v", err)
		}
	}

	if !total.Equal(decimal.RequireFromString("1.00")) {
		t.Errorf("Expected 1.00 after ten 0.10 increments, got %s", total)
	}

	if _, err := svc.AddChallengeAmount(ctx, "missing", decimal.NewFromInt(1)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown challenge, got %v", err)
	}
}

func TestTransitionChallenge_IsGuarded(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)

	moved, err := svc.TransitionChallenge(ctx, "c1", models.ChallengeActive, models.ChallengeCompleted)
	if err != nil || !moved {
		t.Fatalf("Expected ACTIVE -> COMPLETED to succeed, moved=%v err=%v", moved, err)
	}

	moved, err = svc.TransitionChallenge(ctx, "c1", models.ChallengeActive, models.ChallengeFailed)
	if err != nil {
		t.Fatalf("TransitionChallenge failed: %v", err)
	}
	if moved {
		t.Error("Terminal challenge moved again")
	}
}

func TestParticipant_DuplicateMembership(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user2", false)

	ts := time.Now().UTC()
	err := svc.InsertParticipant(context.Background(), &models.Participant{
		Id: "p2", ChallengeId: "c1", UserId: "user2", Status: models.ParticipantActive, JoinedAt: ts, UpdatedAt: ts,
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestParticipant_CreatorNeverLeft(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user1", true)

	if _, err := svc.TransitionParticipant(ctx, "p1", models.ParticipantActive, models.ParticipantLeft); err == nil {
		t.Fatal("Expected the creator row to refuse LEFT")
	}

	p, err := svc.GetParticipantById(ctx, "p1")
	if err != nil {
		t.Fatalf("GetParticipantById failed: %v", err)
	}
	if p.Status != models.ParticipantActive {
		t.Errorf("Expected creator to stay active, got %s", models.FormatParticipantStatus(p.Status))
	}
}

func TestClaimParticipantReward_Once(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user1", true)

	claimed, err := svc.ClaimParticipantReward(ctx, "p1")
	if err != nil || !claimed {
		t.Fatalf("Expected first claim to succeed, claimed=%v err=%v", claimed, err)
	}

	claimed, err = svc.ClaimParticipantReward(ctx, "p1")
	if err != nil {
		t.Fatalf("Second claim failed: %v", err)
	}
	if claimed {
		t.Error("Reward claimed twice")
	}

	p, _ := svc.GetParticipantById(ctx, "p1")
	if p.Status != models.ParticipantCompleted || !p.RewardClaimed {
		t.Errorf("Expected completed and claimed, got status=%s claimed=%v",
			models.FormatParticipantStatus(p.Status), p.RewardClaimed)
	}
}

func TestListParticipants_RankedByContribution(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "500", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user1", true)
	insertTestParticipant(t, svc, "p2", "c1", "user2", false)
	insertTestParticipant(t, svc, "p3", "c1", "user3", false)

	amounts := map[string]string{"p1": "10", "p2": "75.50", "p3": "20"}
	for id, amount := range amounts {
		if err := svc.AddParticipantAmount(ctx, id, decimal.RequireFromString(amount)); err != nil {
			t.Fatalf("AddParticipantAmount failed: %v", err)
		}
	}

	participants, err := svc.ListParticipants(ctx, "c1")
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}

	want := []string{"p2", "p3", "p1"}
	if len(participants) != len(want) {
		t.Fatalf("Expected %d participants, got %d", len(want), len(participants))
	}
	for i, id := range want {
		if participants[i].Id != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, participants[i].Id)
		}
	}
}

func TestListAvailableChallenges(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	insertTestChallenge(t, svc, "open", "user1", "50", testDate(30), intPtr(3))
	insertTestParticipant(t, svc, "p-open", "open", "user1", true)

	insertTestChallenge(t, svc, "full", "user1", "50", testDate(30), intPtr(2))
	insertTestParticipant(t, svc, "p-full-1", "full", "user1", true)
	insertTestParticipant(t, svc, "p-full-2", "full", "user2", false)

	insertTestChallenge(t, svc, "unlimited", "user1", "50", testDate(30), nil)

	insertTestChallenge(t, svc, "done", "user1", "50", testDate(30), nil)
	if _, err := svc.TransitionChallenge(ctx, "done", models.ChallengeActive, models.ChallengeCompleted); err != nil {
		t.Fatalf("TransitionChallenge failed: %v", err)
	}

	available, err := svc.ListAvailableChallenges(ctx)
	if err != nil {
		t.Fatalf("ListAvailableChallenges failed: %v", err)
	}

	got := map[string]bool{}
	for _, c := range available {
		got[c.Id] = true
	}
	if !got["open"] || !got["unlimited"] {
		t.Errorf("Expected open and unlimited challenges, got %v", got)
	}
	if got["full"] || got["done"] {
		t.Errorf("Full or completed challenge listed as available: %v", got)
	}

	// A member leaving frees a slot.
	if _, err := svc.TransitionParticipant(ctx, "p-full-2", models.ParticipantActive, models.ParticipantLeft); err != nil {
		t.Fatalf("TransitionParticipant failed: %v", err)
	}
	available, _ = svc.ListAvailableChallenges(ctx)
	found := false
	for _, c := range available {
		found = found || c.Id == "full"
	}
	if !found {
		t.Error("Expected challenge to be available after a member left")
	}
}

func TestFailExpiredChallenges_ForwardOnly(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	today := testDate(10)

	insertTestChallenge(t, svc, "expired", "user1", "50", testDate(9), nil)
	insertTestChallenge(t, svc, "due-today", "user1", "50", testDate(10), nil)
	insertTestChallenge(t, svc, "completed", "user1", "50", testDate(5), nil)
	if _, err := svc.TransitionChallenge(ctx, "completed", models.ChallengeActive, models.ChallengeCompleted); err != nil {
		t.Fatalf("TransitionChallenge failed: %v", err)
	}

	n, err := svc.FailExpiredChallenges(ctx, today)
	if err != nil {
		t.Fatalf("FailExpiredChallenges failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 challenge failed, got %d", n)
	}

	want := map[string]models.ChallengeStatus{
		"expired":   models.ChallengeFailed,
		"due-today": models.ChallengeActive,
		"completed": models.ChallengeCompleted,
	}
	for id, status := range want {
		c, err := svc.GetChallenge(ctx, id)
		if err != nil {
			t.Fatalf("GetChallenge(%s) failed: %v", id, err)
		}
		if c.Status != status {
			t.Errorf("%s: expected %s, got %s", id, models.FormatChallengeStatus(status), models.FormatChallengeStatus(c.Status))
		}
	}

	// Second run changes nothing.
	if n, _ := svc.FailExpiredChallenges(ctx, today); n != 0 {
		t.Errorf("Expected idempotent sweep, got %d changes", n)
	}
}

func TestStreak_SaveAndDeactivate(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user1", true)

	s := &models.ChallengeStreak{
		Id:                   "s1",
		ParticipantId:        "p1",
		ChallengeId:          "c1",
		UserId:               "user1",
		CurrentStreak:        2,
		LongestStreak:        2,
		LastContributionDate: testDate(3),
		TotalContributions:   2,
		StreakActive:         true,
	}
	if err := svc.SaveStreak(ctx, s); err != nil {
		t.Fatalf("SaveStreak failed: %v", err)
	}

	s.CurrentStreak = 3
	s.LongestStreak = 3
	s.TotalContributions = 3
	s.LastContributionDate = testDate(4)
	if err := svc.SaveStreak(ctx, s); err != nil {
		t.Fatalf("SaveStreak update failed: %v", err)
	}

	got, err := svc.GetStreakByParticipant(ctx, "p1")
	if err != nil {
		t.Fatalf("GetStreakByParticipant failed: %v", err)
	}
	if got.CurrentStreak != 3 || !got.LastContributionDate.Equal(testDate(4)) {
		t.Errorf("Unexpected streak after update: current=%d last=%v", got.CurrentStreak, got.LastContributionDate)
	}

	// Cutoff equal to the last date leaves the streak alone.
	if changed, _ := svc.DeactivateStreak(ctx, "s1", testDate(4)); changed {
		t.Error("Streak deactivated although still live")
	}

	stale, err := svc.ListStaleStreaks(ctx, testDate(5))
	if err != nil || len(stale) != 1 {
		t.Fatalf("Expected one stale streak, got %d (err=%v)", len(stale), err)
	}

	changed, err := svc.DeactivateStreak(ctx, "s1", testDate(5))
	if err != nil || !changed {
		t.Fatalf("Expected deactivation, changed=%v err=%v", changed, err)
	}
	got, _ = svc.GetStreakByParticipant(ctx, "p1")
	if got.StreakActive {
		t.Error("Expected inactive streak")
	}
	if got.CurrentStreak != 3 || got.LongestStreak != 3 {
		t.Errorf("Deactivation touched counters: current=%d longest=%d", got.CurrentStreak, got.LongestStreak)
	}
}

func TestDeleteParticipant_RemovesStreak(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user2", false)
	if err := svc.SaveStreak(ctx, &models.ChallengeStreak{Id: "s1", ParticipantId: "p1", ChallengeId: "c1", UserId: "user2"}); err != nil {
		t.Fatalf("SaveStreak failed: %v", err)
	}

	if err := svc.DeleteParticipant(ctx, "p1"); err != nil {
		t.Fatalf("DeleteParticipant failed: %v", err)
	}
	if _, err := svc.GetStreakByParticipant(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected streak to be gone, got %v", err)
	}
}

func TestRewardCredits_EnqueueIsIdempotent(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	credit := func(id string) *models.RewardCredit {
		return &models.RewardCredit{
			Id: id, Reference: "challenge-reward:p1", Kind: models.RewardChallenge,
			UserId: "user1", ChallengeId: "c1", ParticipantId: "p1", Points: 100,
		}
	}

	inserted, err := svc.EnqueueRewardCredit(ctx, credit("rc1"))
	if err != nil || !inserted {
		t.Fatalf("Expected first enqueue to insert, inserted=%v err=%v", inserted, err)
	}
	inserted, err = svc.EnqueueRewardCredit(ctx, credit("rc2"))
	if err != nil {
		t.Fatalf("Second enqueue failed: %v", err)
	}
	if inserted {
		t.Error("Same reference enqueued twice")
	}

	pending, err := svc.ListPendingRewardCredits(ctx, "c1", 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("Expected one pending credit, got %d (err=%v)", len(pending), err)
	}

	if err := svc.MarkRewardCreditFailed(ctx, "rc1", errors.New("directory offline")); err != nil {
		t.Fatalf("MarkRewardCreditFailed failed: %v", err)
	}
	pending, _ = svc.ListPendingRewardCredits(ctx, "", 10)
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "directory offline" {
		t.Fatalf("Expected failed attempt to be recorded, got %+v", pending)
	}

	if err := svc.MarkRewardCreditDelivered(ctx, "rc1"); err != nil {
		t.Fatalf("MarkRewardCreditDelivered failed: %v", err)
	}
	pending, _ = svc.ListPendingRewardCredits(ctx, "", 10)
	if len(pending) != 0 {
		t.Errorf("Expected no pending credits, got %d", len(pending))
	}
}

func TestCreditPoints_IdempotentByReference(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.CreditPoints(ctx, "user1", 100, "challenge-reward:p1"); err != nil {
			t.Fatalf("CreditPoints attempt %d failed: %v", i+1, err)
		}
	}
	if err := svc.CreditPoints(ctx, "user1", 50, "streak-bonus:s1:7"); err != nil {
		t.Fatalf("CreditPoints failed: %v", err)
	}

	user, err := svc.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.PointBalance != 150 {
		t.Errorf("Expected balance 150, got %d", user.PointBalance)
	}
	if user.ChallengeQuota != 3 {
		t.Errorf("Expected standard plan quota 3, got %d", user.ChallengeQuota)
	}

	ok, err := svc.ReconcilePoints(ctx, "user1")
	if err != nil || !ok {
		t.Errorf("Expected points to reconcile, ok=%v err=%v", ok, err)
	}

	history, err := svc.GetPointHistory(ctx, "user1", 10, 0)
	if err != nil || len(history) != 2 {
		t.Errorf("Expected 2 ledger rows, got %d (err=%v)", len(history), err)
	}

	if err := svc.CreditPoints(ctx, "ghost", 10, "challenge-reward:px"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	boom := errors.New("boom")
	ts := time.Now().UTC()

	err := svc.WithinTx(ctx, func(repo store.Repository) error {
		if err := repo.InsertChallenge(ctx, &models.Challenge{
			Id: "c1", CreatorId: "user1", Title: "t", TargetAmount: decimal.NewFromInt(10),
			Deadline: testDate(30), Status: models.ChallengeActive, CreatedAt: ts, UpdatedAt: ts,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected callback error, got %v", err)
	}

	if _, err := svc.GetChallenge(ctx, "c1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected rollback, got %v", err)
	}
}

func TestReconcileChallenge(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user1", true)

	amount := decimal.RequireFromString("12.34")
	if err := svc.AddParticipantAmount(ctx, "p1", amount); err != nil {
		t.Fatalf("AddParticipantAmount failed: %v", err)
	}
	if _, err := svc.AddChallengeAmount(ctx, "c1", amount); err != nil {
		t.Fatalf("AddChallengeAmount failed: %v", err)
	}
	if err := svc.InsertContribution(ctx, &models.Contribution{
		Id: "x1", ChallengeId: "c1", ParticipantId: "p1", UserId: "user1",
		Amount: amount, ContributedOn: testDate(1), CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("InsertContribution failed: %v", err)
	}

	rec, err := svc.ReconcileChallenge(ctx, "c1")
	if err != nil {
		t.Fatalf("ReconcileChallenge failed: %v", err)
	}
	if !rec.Balanced() {
		t.Errorf("Expected balanced totals, got %+v", rec)
	}

	// An increment that skips the participant row shows up as a mismatch.
	if _, err := svc.AddChallengeAmount(ctx, "c1", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("AddChallengeAmount failed: %v", err)
	}
	rec, _ = svc.ReconcileChallenge(ctx, "c1")
	if rec.Balanced() {
		t.Error("Expected mismatch to be detected")
	}
}

func TestPurgeChallenge_CascadesChildren(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestChallenge(t, svc, "c1", "user1", "50", testDate(30), nil)
	insertTestParticipant(t, svc, "p1", "c1", "user1", true)
	if err := svc.SaveStreak(ctx, &models.ChallengeStreak{Id: "s1", ParticipantId: "p1", ChallengeId: "c1", UserId: "user1"}); err != nil {
		t.Fatalf("SaveStreak failed: %v", err)
	}

	if err := svc.PurgeChallenge(ctx, "c1"); err != nil {
		t.Fatalf("PurgeChallenge failed: %v", err)
	}

	if _, err := svc.GetChallenge(ctx, "c1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected challenge to be purged, got %v", err)
	}
	if _, err := svc.GetParticipantById(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected participant to be purged, got %v", err)
	}
}

func TestReportProgress_KeepsLatestValue(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := svc.ReportProgress(ctx, "user1", "FIRST_CHALLENGE", 1); err != nil {
		t.Fatalf("ReportProgress failed: %v", err)
	}
	if err := svc.ReportProgress(ctx, "user1", "FIRST_CHALLENGE", 2); err != nil {
		t.Fatalf("ReportProgress failed: %v", err)
	}

	progress, err := svc.GetAchievementProgress(ctx, "user1")
	if err != nil {
		t.Fatalf("GetAchievementProgress failed: %v", err)
	}
	if progress["FIRST_CHALLENGE"].Value != 2 {
		t.Errorf("Expected progress 2, got %d", progress["FIRST_CHALLENGE"].Value)
	}
}

func TestListPendingRewardCredits_FewestAttemptsFirst(t *testing.T) {
	svc, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	queued := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new"} {
		_, err := svc.EnqueueRewardCredit(ctx, &models.RewardCredit{
			Id: id, Reference: "challenge-reward:" + id, Kind: models.RewardChallenge,
			UserId: "user1", ChallengeId: "c1", ParticipantId: id, Points: 5,
			CreatedAt: queued.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("EnqueueRewardCredit failed: %v", err)
		}
	}

	pending, _ := svc.ListPendingRewardCredits(ctx, "", 1)
	if len(pending) != 1 || pending[0].Id != "old" {
		t.Fatalf("Expected oldest credit first, got %+v", pending)
	}

	if err := svc.MarkRewardCreditFailed(ctx, "old", errors.New("rejected")); err != nil {
		t.Fatalf("MarkRewardCreditFailed failed: %v", err)
	}
	pending, _ = svc.ListPendingRewardCredits(ctx, "", 1)
	if len(pending) != 1 || pending[0].Id != "new" {
		t.Errorf("Expected untried credit ahead of failed one, got %+v", pending)
	}
}
