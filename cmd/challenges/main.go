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

package main

import (
	"context"
	"flag"
	"fmt"

	"challenge-goals-go/internal/api"
	"challenge-goals-go/internal/common"
	"challenge-goals-go/internal/config"
	"challenge-goals-go/internal/formance"
	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
)

const progressWidth = 30

type reportStats struct {
	totalUsers      int
	usersInvolved   int
	totalChallenges int
	mismatches      int
}

func printChallenge(view models.ChallengeView, streak *models.StreakView, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	detail := common.BoxDetailPrefix(isLast)

	fmt.Printf("%s %-30s [%s] due %s\n", symbol, view.Title, view.Status, view.Deadline)
	fmt.Printf("%s %s  %s / %s\n", detail,
		common.ProgressBar(view.ProgressPercentage.Decimal, progressWidth),
		view.CurrentAmount.StringFixed(2),
		view.TargetAmount.StringFixed(2))

	for i, c := range view.TopContributors {
		fmt.Printf("%s   #%d %-20s %12s (%s%%)\n", detail, i+1, c.UserId,
			c.ContributedAmount.StringFixed(2), c.ContributionPercentage)
	}

	if streak != nil {
		state := "inactive"
		if streak.StreakActive {
			state = "active"
		}
		fmt.Printf("%s   streak: %d days (longest %d, %s, +%d bonus)\n", detail,
			streak.CurrentStreak, streak.LongestStreak, state, streak.BonusPointsEarned)
	}
}

func printUserHeader(user common.UserInfo, challengeCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s  Plan: %s  Points: %d\n", user.Id, user.Plan, user.Points)
	fmt.Printf("│  Challenges: %d\n", challengeCount)
	common.PrintBoxSeparator(78)
}

// verifyUser checks the totals of each listed challenge and, when points are
// mirrored, the user's point balance against Formance. It returns the number
// of mismatches found.
func verifyUser(ctx context.Context, user common.UserInfo, challenges []models.ChallengeView, svc *api.ChallengeService, mirror *formance.Service) int {
	mismatches := 0
	for _, view := range challenges {
		ok, err := svc.VerifyChallengeTotals(ctx, view.Id)
		if err != nil {
			zap.L().Error("Failed to verify challenge", zap.String("challenge_id", view.Id), zap.Error(err))
			continue
		}
		if !ok {
			mismatches++
			fmt.Printf("│  ✗ %s: challenge totals do not reconcile\n", view.Title)
		}
	}

	if mirror != nil {
		ok, err := mirror.VerifyUser(ctx, user.Id)
		if err != nil {
			zap.L().Error("Failed to verify point balance", zap.String("user_id", user.Id), zap.Error(err))
		} else if !ok {
			mismatches++
			fmt.Printf("│  ✗ point balance differs from Formance\n")
		}
	}
	return mismatches
}

func processUser(ctx context.Context, user common.UserInfo, svc *api.ChallengeService, activeOnly bool) ([]models.ChallengeView, error) {
	challenges, err := svc.ListUserChallenges(ctx, user.Id, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenges: %w", err)
	}
	if len(challenges) == 0 {
		return nil, nil
	}

	streaks, err := svc.GetUserStreaks(ctx, user.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to get streaks: %w", err)
	}
	byChallenge := make(map[string]*models.StreakView, len(streaks))
	for i := range streaks {
		byChallenge[streaks[i].ChallengeId] = &streaks[i]
	}

	printUserHeader(user, len(challenges))
	for i, view := range challenges {
		printChallenge(view, byChallenge[view.Id], i == len(challenges)-1)
	}

	return challenges, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	activeFlag := flag.Bool("active", false, "Only show active challenges")
	verifyFlag := flag.Bool("verify", false, "Reconcile challenge totals and, when mirrored, point balances against Formance")
	flag.Parse()

	logger.Info("Starting challenge report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	svc := api.NewChallengeService(services.DbService, services.Engine)
	if err := svc.HealthCheck(ctx); err != nil {
		logger.Fatal("Database not healthy", zap.Error(err))
	}

	users, err := common.InitializeUsers(ctx, services.DbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("CHALLENGE PROGRESS REPORT", common.DefaultWidth)

	stats := reportStats{}
	for _, user := range users {
		stats.totalUsers++

		challenges, err := processUser(ctx, user, svc, *activeFlag)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}
		if len(challenges) > 0 {
			stats.usersInvolved++
			stats.totalChallenges += len(challenges)
		}
		if *verifyFlag {
			stats.mismatches += verifyUser(ctx, user, challenges, svc, services.Mirror)
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users in challenges (%d memberships across %d users queried)",
		stats.usersInvolved, stats.totalChallenges, stats.totalUsers)
	if *verifyFlag {
		summary += fmt.Sprintf(", %d mismatches", stats.mismatches)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Challenge report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_involved", stats.usersInvolved),
		zap.Int("total_challenges", stats.totalChallenges))
}
