package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/models"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, created_at, wallet_id, user_id, type, status, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, wallet_id, user_id, type, status, amount
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction, t.ID, t.CreatedAt, t.WalletID, t.UserID, t.Type, t.Status, t.Amount)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation && pgErr.ConstraintName == "transactions_user_id_fkey":
			return created, apperrors.ErrUserNotFound
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
			return created, apperrors.ErrWalletNotFound
		default:
			return created, fmt.Errorf("db error: %w", err)
		}
	}

	return created, nil
}

// seq breaks ties between transactions with equal timestamps and follows commit order within a wallet
const listTransactions = `-- name: ListTransactions
SELECT id, created_at, wallet_id, user_id, type, status, amount FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, seq DESC
`

func (r *TransactionRepo) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactions, userID)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.CreatedAt, &t.WalletID, &t.UserID, &t.Type, &t.Status, &t.Amount)
	return t, err
}
