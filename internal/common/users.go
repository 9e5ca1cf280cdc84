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

package common

import (
	"context"
	"fmt"

	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
)

// UserLister is the slice of the user directory the command-line tools need.
type UserLister interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Id     string
	Name   string
	Email  string
	Plan   string
	Points int64
}

func userInfo(u models.User) UserInfo {
	return UserInfo{
		Id:     u.Id,
		Name:   u.Name,
		Email:  u.Email,
		Plan:   models.FormatPlan(u.Plan),
		Points: u.PointBalance,
	}
}

// InitializeUsers retrieves users based on an optional email filter.
// If emailFilter is provided, returns a single user with that email.
// If emailFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, directory UserLister, emailFilter string, logger *zap.Logger) ([]UserInfo, error) {
	var users []UserInfo

	if emailFilter != "" {
		logger.Info("Looking up user by email", zap.String("email", emailFilter))
		user, err := directory.GetUserByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		users = append(users, userInfo(*user))
	} else {
		allUsers, err := directory.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		for _, u := range allUsers {
			users = append(users, userInfo(u))
		}
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
