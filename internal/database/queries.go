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

// Status values are always bound as parameters so the mapping tables in
// models stay the single source of their string forms.
const (
	// User queries
	userColumns = `id, name, email, plan, point_balance, active, created_at, updated_at`

	queryGetActiveUsers = `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, plan) VALUES (?, ?, ?, ?)`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = ? AND active = 1`

	// Points ledger queries
	queryCheckDuplicatePointTransaction = `
		SELECT id FROM point_transactions WHERE reference = ? LIMIT 1`

	queryGetPointBalance = `
		SELECT point_balance, version
		FROM users
		WHERE id = ? AND active = 1`

	queryInsertPointTransaction = `
		INSERT INTO point_transactions (id, user_id, amount, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, amount, balance_before, balance_after, reference, created_at`

	queryUpdatePointBalance = `
		UPDATE users
		SET point_balance = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	queryGetPointHistory = `
		SELECT id, user_id, amount, balance_before, balance_after, reference, created_at
		FROM point_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryReconcilePoints = `
		SELECT COALESCE(SUM(amount), 0) AS calculated_balance
		FROM point_transactions
		WHERE user_id = ?`

	// Achievement queries
	queryUpsertAchievementProgress = `
		INSERT INTO achievement_progress (user_id, code, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, code) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	queryGetAchievementProgress = `
		SELECT user_id, code, value, updated_at
		FROM achievement_progress
		WHERE user_id = ?
		ORDER BY code`

	// Challenge queries
	challengeColumns = `c.id, c.creator_id, c.title, c.description, c.target_amount, c.current_amount,
		c.category, c.deadline, c.status, c.max_participants, c.reward_points, c.created_at, c.updated_at`

	queryInsertChallenge = `
		INSERT INTO challenges (
			id, creator_id, title, description, target_amount, current_amount, category,
			deadline, status, max_participants, reward_points, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetChallenge = `
		SELECT ` + challengeColumns + `
		FROM challenges c
		WHERE c.id = ?`

	queryUpdateChallengeDetails = `
		UPDATE challenges
		SET title = ?, description = ?, target_amount = ?, category = ?, deadline = ?,
		    max_participants = ?, reward_points = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryTransitionChallenge = `
		UPDATE challenges
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryAddChallengeAmount = `
		UPDATE challenges
		SET current_amount = current_amount + ?, updated_at = ?
		WHERE id = ?
		RETURNING current_amount`

	queryCountActiveChallengesByCreator = `
		SELECT COUNT(*) FROM challenges WHERE creator_id = ? AND status = ?`

	queryListChallengesByCreator = `
		SELECT ` + challengeColumns + `
		FROM challenges c
		WHERE c.creator_id = ?
		ORDER BY c.created_at DESC, c.rowid DESC`

	queryListChallengesByParticipant = `
		SELECT ` + challengeColumns + `
		FROM challenges c
		JOIN challenge_participants p ON p.challenge_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.created_at DESC, c.rowid DESC`

	queryListActiveChallengesByParticipant = `
		SELECT ` + challengeColumns + `
		FROM challenges c
		JOIN challenge_participants p ON p.challenge_id = c.id
		WHERE p.user_id = ? AND p.status = ? AND c.status = ?
		ORDER BY c.deadline, c.created_at DESC`

	queryListChallengesByStatus = `
		SELECT ` + challengeColumns + `
		FROM challenges c
		WHERE c.status = ?
		ORDER BY c.created_at DESC, c.rowid DESC`

	queryListAvailableChallenges = `
		SELECT ` + challengeColumns + `
		FROM challenges c
		WHERE c.status = ?
		  AND (c.max_participants IS NULL OR c.max_participants > (
		        SELECT COUNT(*) FROM challenge_participants p
		        WHERE p.challenge_id = c.id AND p.status = ?))
		ORDER BY c.created_at DESC, c.rowid DESC`

	queryFailExpiredChallenges = `
		UPDATE challenges
		SET status = ?, updated_at = ?
		WHERE status = ? AND deadline < ? AND current_amount < target_amount`

	// Participant queries
	participantColumns = `id, challenge_id, user_id, contributed_amount, status, is_creator,
		reward_claimed, joined_at, updated_at`

	queryInsertParticipant = `
		INSERT INTO challenge_participants (` + participantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetParticipant = `
		SELECT ` + participantColumns + `
		FROM challenge_participants
		WHERE challenge_id = ? AND user_id = ?`

	queryGetParticipantById = `
		SELECT ` + participantColumns + `
		FROM challenge_participants
		WHERE id = ?`

	queryListParticipants = `
		SELECT ` + participantColumns + `
		FROM challenge_participants
		WHERE challenge_id = ?
		ORDER BY contributed_amount DESC, joined_at, rowid`

	queryCountParticipantsByStatus = `
		SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = ? AND status = ?`

	queryCountParticipationsByUser = `
		SELECT COUNT(*) FROM challenge_participants WHERE user_id = ?`

	queryCountUserParticipationsByStatus = `
		SELECT COUNT(*) FROM challenge_participants WHERE user_id = ? AND status = ?`

	queryTransitionParticipant = `
		UPDATE challenge_participants
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryAddParticipantAmount = `
		UPDATE challenge_participants
		SET contributed_amount = contributed_amount + ?, updated_at = ?
		WHERE id = ?`

	queryClaimParticipantReward = `
		UPDATE challenge_participants
		SET status = ?, reward_claimed = 1, updated_at = ?
		WHERE id = ? AND status = ? AND reward_claimed = 0`

	queryDeleteParticipant = `
		DELETE FROM challenge_participants WHERE id = ?`

	// Streak queries
	streakColumns = `id, participant_id, challenge_id, user_id, current_streak, longest_streak,
		last_contribution_date, total_contributions, streak_active, bonus_points_earned, created_at, updated_at`

	queryGetStreakByParticipant = `
		SELECT ` + streakColumns + `
		FROM challenge_streaks
		WHERE participant_id = ?`

	queryUpsertStreak = `
		INSERT INTO challenge_streaks (` + streakColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_contribution_date = excluded.last_contribution_date,
			total_contributions = excluded.total_contributions,
			streak_active = excluded.streak_active,
			bonus_points_earned = excluded.bonus_points_earned,
			updated_at = excluded.updated_at`

	queryDeactivateStreak = `
		UPDATE challenge_streaks
		SET streak_active = 0, updated_at = ?
		WHERE id = ? AND streak_active = 1 AND last_contribution_date < ?`

	queryListStreaksByChallenge = `
		SELECT ` + streakColumns + `
		FROM challenge_streaks
		WHERE challenge_id = ?
		ORDER BY current_streak DESC, longest_streak DESC`

	queryListStreaksByUser = `
		SELECT ` + streakColumns + `
		FROM challenge_streaks
		WHERE user_id = ?
		ORDER BY current_streak DESC, longest_streak DESC`

	queryListStaleStreaks = `
		SELECT ` + streakColumns + `
		FROM challenge_streaks
		WHERE streak_active = 1 AND last_contribution_date IS NOT NULL AND last_contribution_date < ?
		ORDER BY last_contribution_date`

	queryDeleteStreakByParticipant = `
		DELETE FROM challenge_streaks WHERE participant_id = ?`

	// Contribution queries
	queryInsertContribution = `
		INSERT INTO challenge_contributions (
			id, challenge_id, participant_id, user_id, amount, note, contributed_on, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryListContributions = `
		SELECT id, challenge_id, participant_id, user_id, amount, note, contributed_on, created_at
		FROM challenge_contributions
		WHERE challenge_id = ?
		ORDER BY created_at, rowid`

	queryReconcileChallenge = `
		SELECT c.current_amount,
		       (SELECT COALESCE(SUM(p.contributed_amount), 0) FROM challenge_participants p WHERE p.challenge_id = c.id),
		       (SELECT COALESCE(SUM(x.amount), 0) FROM challenge_contributions x WHERE x.challenge_id = c.id)
		FROM challenges c
		WHERE c.id = ?`

	// Reward credit queries
	rewardCreditColumns = `id, reference, kind, user_id, challenge_id, participant_id, points, status,
		attempts, last_error, created_at, delivered_at`

	queryInsertRewardCredit = `
		INSERT INTO reward_credits (` + rewardCreditColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, '', ?, NULL)
		ON CONFLICT(reference) DO NOTHING`

	queryListPendingRewardCredits = `
		SELECT ` + rewardCreditColumns + `
		FROM reward_credits
		WHERE status = ? AND (? = '' OR challenge_id = ?)
		ORDER BY attempts, created_at, rowid
		LIMIT ?`

	queryMarkRewardCreditDelivered = `
		UPDATE reward_credits
		SET status = ?, attempts = attempts + 1, last_error = '', delivered_at = ?
		WHERE id = ? AND status = ?`

	queryMarkRewardCreditFailed = `
		UPDATE reward_credits
		SET attempts = attempts + 1, last_error = ?
		WHERE id = ? AND status = ?`

	// Purge queries, children first
	queryPurgeStreaks        = `DELETE FROM challenge_streaks WHERE challenge_id = ?`
	queryPurgeContributions  = `DELETE FROM challenge_contributions WHERE challenge_id = ?`
	queryPurgeRewardCredits  = `DELETE FROM reward_credits WHERE challenge_id = ?`
	queryPurgeParticipants   = `DELETE FROM challenge_participants WHERE challenge_id = ?`
	queryPurgeChallengeEntry = `DELETE FROM challenges WHERE id = ?`
)
