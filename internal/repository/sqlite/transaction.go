package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/models"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, created_at, wallet_id, user_id, type, status, amount)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if !t.Amount.IsPositive() {
		return models.Transaction{}, apperrors.ErrInvalidAmount
	}

	_, err := r.DB.ExecContext(ctx, createTransaction,
		t.ID, toMicro(t.CreatedAt), t.WalletID, t.UserID, t.Type, t.Status, t.Amount.String(),
	)
	switch {
	case err == nil:
		t.CreatedAt = fromMicro(toMicro(t.CreatedAt))
		return t, nil
	case isConstraint(err, sqlite3.ErrConstraintForeignKey):
		// sqlite does not name the violated key, wallet is the one checked first by callers
		return models.Transaction{}, apperrors.ErrWalletNotFound
	default:
		return models.Transaction{}, fmt.Errorf("db error: %w", err)
	}
}

// seq follows insertion order and breaks ties between equal timestamps
const listTransactions = `-- name: ListTransactions
SELECT id, created_at, wallet_id, user_id, type, status, amount FROM transactions
WHERE user_id = ?
ORDER BY created_at DESC, seq DESC
`

func (r *TransactionRepo) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	rows, err := r.DB.QueryContext(ctx, listTransactions, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

func scanTransaction(rows *sql.Rows) (models.Transaction, error) {
	var (
		t         models.Transaction
		createdAt int64
	)

	err := rows.Scan(&t.ID, &createdAt, &t.WalletID, &t.UserID, &t.Type, &t.Status, &t.Amount)
	t.CreatedAt = fromMicro(createdAt)
	return t, err
}
