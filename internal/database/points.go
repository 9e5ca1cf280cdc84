package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PointsLedger records reward point movements per user
type PointsLedger struct {
	db *sql.DB
}

// CreditParams contains the parameters for a point credit
type CreditParams struct {
	UserId    string
	Amount    int64
	Reference string
}

func NewPointsLedger(db *sql.DB) *PointsLedger {
	return &PointsLedger{
		db: db,
	}
}

func (l *PointsLedger) InitSchema(ctx context.Context) error {
	schema := `
	-- Point Transactions Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS point_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		amount INTEGER NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		reference TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_point_transactions_user_id ON point_transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_point_transactions_created_at ON point_transactions(created_at);
	`

	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// Credit atomically updates the user's point balance and records the movement
func (l *PointsLedger) Credit(ctx context.Context, params CreditParams) (*models.PointTransaction, error) {
	zap.L().Info("Processing point credit",
		zap.String("user_id", params.UserId),
		zap.Int64("amount", params.Amount),
		zap.String("reference", params.Reference))

	if params.Reference == "" {
		return nil, fmt.Errorf("point credit requires a reference")
	}

	// Check for an already applied reference
	var existingTxId string
	err := l.db.QueryRowContext(ctx, queryCheckDuplicatePointTransaction, params.Reference).Scan(&existingTxId)
	if err == nil {
		zap.L().Warn("Duplicate point credit detected, skipping",
			zap.String("reference", params.Reference),
			zap.String("existing_tx_id", existingTxId))
		return nil, fmt.Errorf("%w: reference %s already applied", store.ErrDuplicate, params.Reference)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check for duplicate point credit: %w", err)
	}

	// Start database transaction for atomicity
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentBalance, version int64
	err = tx.QueryRowContext(ctx, queryGetPointBalance, params.UserId).Scan(&currentBalance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, params.UserId)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current point balance: %w", err)
	}

	newBalance := currentBalance + params.Amount

	transaction := &models.PointTransaction{}
	err = tx.QueryRowContext(ctx, queryInsertPointTransaction,
		uuid.New().String(), params.UserId, params.Amount, currentBalance, newBalance, params.Reference, now()).
		Scan(&transaction.Id, &transaction.UserId, &transaction.Amount, &transaction.BalanceBefore,
			&transaction.BalanceAfter, &transaction.Reference, &transaction.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: reference %s already applied", store.ErrDuplicate, params.Reference)
		}
		return nil, fmt.Errorf("failed to insert point transaction: %w", err)
	}

	// Update balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdatePointBalance, newBalance, params.UserId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update point balance: %w", err)
	}

	changed, err := rowsChanged(result)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("point balance update failed - %w", store.ErrConcurrentModification)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Point credit processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", params.UserId),
		zap.Int64("old_balance", currentBalance),
		zap.Int64("new_balance", newBalance))

	return transaction, nil
}

func (l *PointsLedger) History(ctx context.Context, userId string, limit, offset int) ([]models.PointTransaction, error) {
	rows, err := l.db.QueryContext(ctx, queryGetPointHistory, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query point history: %w", err)
	}

	return collect(rows, func(row scanner) (models.PointTransaction, error) {
		var t models.PointTransaction
		err := row.Scan(&t.Id, &t.UserId, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.Reference, &t.CreatedAt)
		return t, err
	})
}

func (l *PointsLedger) Sum(ctx context.Context, userId string) (int64, error) {
	var sum int64
	if err := l.db.QueryRowContext(ctx, queryReconcilePoints, userId).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum point transactions: %w", err)
	}
	return sum, nil
}
