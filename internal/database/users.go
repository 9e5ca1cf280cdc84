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
	"errors"
	"fmt"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) scanUser(row scanner) (models.User, error) {
	var (
		user models.User
		plan string
	)
	err := row.Scan(&user.Id, &user.Name, &user.Email, &plan, &user.PointBalance, &user.Active,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return user, err
	}

	if user.Plan, err = models.ParsePlan(plan); err != nil {
		return user, err
	}
	user.ChallengeQuota = s.quotas[user.Plan]
	return user, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying active users")

	rows, err := s.db.QueryContext(ctx, queryGetActiveUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}

	users, err := collect(rows, s.scanUser)
	if err != nil {
		zap.L().Error("Failed to scan user row", zap.Error(err))
		return nil, fmt.Errorf("unable to scan user row: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := s.scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}

	zap.L().Debug("Retrieved user by ID", zap.String("user_id", userId), zap.String("name", user.Name))
	return &user, nil
}

// GetUser satisfies store.UserDirectory.
func (s *Service) GetUser(ctx context.Context, userId string) (*models.User, error) {
	return s.GetUserById(ctx, userId)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	zap.L().Debug("Querying user by email", zap.String("email", email))

	user, err := s.scanUser(s.db.QueryRowContext(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
		}
		zap.L().Error("Failed to query user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by email: %w", err)
	}

	zap.L().Debug("Retrieved user by email", zap.String("email", email), zap.String("name", user.Name))
	return &user, nil
}

func (s *Service) CreateUser(ctx context.Context, userId, name, email string, plan models.Plan) (*models.User, error) {
	zap.L().Info("Creating user",
		zap.String("id", userId),
		zap.String("name", name),
		zap.String("email", email),
		zap.String("plan", models.FormatPlan(plan)))

	result, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, email, models.FormatPlan(plan))
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	inserted, err := rowsChanged(result)
	if err != nil {
		zap.L().Error("Failed to get rows affected", zap.Error(err))
		return nil, err
	}

	if !inserted {
		return nil, fmt.Errorf("%w: user with email %s already exists", store.ErrDuplicate, email)
	}

	zap.L().Info("User created successfully", zap.String("id", userId), zap.String("name", name), zap.String("email", email))

	// Return the created user
	return s.GetUserByEmail(ctx, email)
}

// CreditPoints adds reward points to a user's balance. A reference that was
// already applied is accepted silently so retried deliveries never double count.
func (s *Service) CreditPoints(ctx context.Context, userId string, points int, reference string) error {
	_, err := s.points.Credit(ctx, CreditParams{
		UserId:    userId,
		Amount:    int64(points),
		Reference: reference,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("error crediting points: %w", err)
	}
	return nil
}

func (s *Service) GetPointHistory(ctx context.Context, userId string, limit, offset int) ([]models.PointTransaction, error) {
	return s.points.History(ctx, userId, limit, offset)
}

// ReconcilePoints checks the stored balance against the ledger sum.
func (s *Service) ReconcilePoints(ctx context.Context, userId string) (bool, error) {
	user, err := s.GetUserById(ctx, userId)
	if err != nil {
		return false, err
	}

	sum, err := s.points.Sum(ctx, userId)
	if err != nil {
		return false, err
	}

	if sum != user.PointBalance {
		zap.L().Warn("Point balance does not reconcile",
			zap.String("user_id", userId),
			zap.Int64("stored_balance", user.PointBalance),
			zap.Int64("ledger_sum", sum))
		return false, nil
	}
	return true, nil
}
