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

package api

import (
	"context"
	"errors"
	"fmt"

	"challenge-goals-go/internal/challenge"
	"challenge-goals-go/internal/database"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ChallengeService is the read side handed to the web layer
type ChallengeService struct {
	db     *database.Service
	engine *challenge.Engine
}

func NewChallengeService(db *database.Service, engine *challenge.Engine) *ChallengeService {
	return &ChallengeService{
		db:     db,
		engine: engine,
	}
}

func (s *ChallengeService) HealthCheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if _, err := s.db.GetUsers(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// publicError keeps engine errors, which are meant for callers, and replaces
// anything else with a generic message after logging it.
func publicError(err error, message string, fields ...zap.Field) error {
	if challenge.KindOf(err) != challenge.KindUnknown {
		return err
	}
	zap.L().Error(message, append(fields, zap.Error(err))...)
	return errors.New(message)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func page[T any](items []T, limit, offset int) []T {
	limit, offset = normalizePage(limit, offset)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
