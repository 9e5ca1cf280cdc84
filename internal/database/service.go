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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time checks: *Service backs every store boundary.
var (
	_ store.ChallengeStore     = (*Service)(nil)
	_ store.UserDirectory      = (*Service)(nil)
	_ store.AchievementTracker = (*Service)(nil)
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Service struct {
	*repository
	db     *sql.DB
	points *PointsLedger
	quotas models.PlanQuotas
}

func NewService(ctx context.Context, cfg models.DatabaseConfig, quotas models.PlanQuotas) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if cfg.BusyTimeout < 0 {
		return nil, fmt.Errorf("busy timeout cannot be negative, got %v", cfg.BusyTimeout)
	}

	// Writers take the lock at BEGIN so a unit of work never upgrades mid-flight.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_txlock=immediate&_foreign_keys=on&_busy_timeout=%d",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db, quotas)
	if err := service.initSchema(ctx, cfg.CreateDummyUsers); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	// Initialize points ledger schema
	if err := service.points.InitSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize points ledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB, quotas models.PlanQuotas) *Service {
	if quotas == nil {
		quotas = models.DefaultPlanQuotas()
	}
	return &Service{
		repository: &repository{q: db},
		db:         db,
		points:     NewPointsLedger(db),
		quotas:     quotas,
	}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn as one unit of work. Any error from fn rolls everything back.
func (s *Service) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&repository{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PurgeChallenge physically removes a challenge and everything it owns.
// Normal deletion is a status change; this exists for administrative cleanup.
func (s *Service) PurgeChallenge(ctx context.Context, challengeId string) error {
	return s.WithinTx(ctx, func(repo store.Repository) error {
		r := repo.(*repository)
		for _, q := range []string{
			queryPurgeStreaks,
			queryPurgeContributions,
			queryPurgeRewardCredits,
			queryPurgeParticipants,
			queryPurgeChallengeEntry,
		} {
			if _, err := r.q.ExecContext(ctx, q, challengeId); err != nil {
				return fmt.Errorf("failed to purge challenge %s: %w", challengeId, err)
			}
		}
		zap.L().Info("Challenge purged", zap.String("challenge_id", challengeId))
		return nil
	})
}

func (s *Service) initSchema(ctx context.Context, createDummyUsers bool) error {
	schema := `
	-- Create users table (user directory backing store)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'free',
		point_balance INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Challenges; money columns hold minor units (cents)
	CREATE TABLE IF NOT EXISTS challenges (
		id TEXT PRIMARY KEY,
		creator_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		target_amount INTEGER NOT NULL CHECK (target_amount > 0),
		current_amount INTEGER NOT NULL DEFAULT 0 CHECK (current_amount >= 0),
		category TEXT NOT NULL DEFAULT '',
		deadline TEXT NOT NULL,
		status TEXT NOT NULL,
		max_participants INTEGER,
		reward_points INTEGER NOT NULL DEFAULT 100 CHECK (reward_points >= 0),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_challenges_creator_status ON challenges(creator_id, status);
	CREATE INDEX IF NOT EXISTS idx_challenges_status_deadline ON challenges(status, deadline);
	CREATE INDEX IF NOT EXISTS idx_challenges_created_at ON challenges(created_at);

	CREATE TABLE IF NOT EXISTS challenge_participants (
		id TEXT PRIMARY KEY,
		challenge_id TEXT NOT NULL REFERENCES challenges(id),
		user_id TEXT NOT NULL,
		contributed_amount INTEGER NOT NULL DEFAULT 0 CHECK (contributed_amount >= 0),
		status TEXT NOT NULL,
		is_creator BOOLEAN NOT NULL DEFAULT 0,
		reward_claimed BOOLEAN NOT NULL DEFAULT 0,
		joined_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(challenge_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_participants_user_status ON challenge_participants(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_participants_challenge_status ON challenge_participants(challenge_id, status);

	-- The creator's membership row can never be left
	CREATE TRIGGER IF NOT EXISTS trg_participants_creator_stays
	BEFORE UPDATE OF status ON challenge_participants
	WHEN NEW.is_creator = 1 AND NEW.status = 'left'
	BEGIN
		SELECT RAISE(ABORT, 'creator participant cannot leave');
	END;

	CREATE TABLE IF NOT EXISTS challenge_streaks (
		id TEXT PRIMARY KEY,
		participant_id TEXT NOT NULL UNIQUE REFERENCES challenge_participants(id),
		challenge_id TEXT NOT NULL REFERENCES challenges(id),
		user_id TEXT NOT NULL,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		last_contribution_date TEXT,
		total_contributions INTEGER NOT NULL DEFAULT 0,
		streak_active BOOLEAN NOT NULL DEFAULT 1,
		bonus_points_earned INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (longest_streak >= current_streak)
	);

	CREATE INDEX IF NOT EXISTS idx_streaks_challenge ON challenge_streaks(challenge_id);
	CREATE INDEX IF NOT EXISTS idx_streaks_user ON challenge_streaks(user_id);
	CREATE INDEX IF NOT EXISTS idx_streaks_active_last ON challenge_streaks(streak_active, last_contribution_date);

	-- Contribution audit trail (cold data)
	CREATE TABLE IF NOT EXISTS challenge_contributions (
		id TEXT PRIMARY KEY,
		challenge_id TEXT NOT NULL REFERENCES challenges(id),
		participant_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		note TEXT NOT NULL DEFAULT '',
		contributed_on TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contributions_challenge ON challenge_contributions(challenge_id);

	-- Reward credits waiting to be applied to the user directory
	CREATE TABLE IF NOT EXISTS reward_credits (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		user_id TEXT NOT NULL,
		challenge_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		points INTEGER NOT NULL CHECK (points > 0),
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		delivered_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reward_credits_status ON reward_credits(status, challenge_id);

	CREATE TABLE IF NOT EXISTS achievement_progress (
		user_id TEXT NOT NULL,
		code TEXT NOT NULL,
		value INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, code)
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	// Insert 3 dummy users for testing if configured to do so
	if createDummyUsers {
		users := []struct {
			id    string
			name  string
			email string
			plan  models.Plan
		}{
			{uuid.New().String(), "Alice Johnson", "alice.johnson@example.com", models.PlanPlus},
			{uuid.New().String(), "Bob Smith", "bob.smith@example.com", models.PlanStandard},
			{uuid.New().String(), "Carol Williams", "carol.williams@example.com", models.PlanFree},
		}

		for _, user := range users {
			_, err := s.db.ExecContext(ctx, queryInsertUser, user.id, user.name, user.email, models.FormatPlan(user.plan))
			if err != nil {
				zap.L().Error("Failed to insert dummy user", zap.String("name", user.name), zap.Error(err))
			} else {
				zap.L().Info("Dummy user created", zap.String("id", user.id), zap.String("name", user.name))
			}
		}
	} else {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
	}

	return nil
}
