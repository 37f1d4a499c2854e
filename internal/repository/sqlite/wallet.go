package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
VALUES (?, ?, '0', ?, ?)
`

func (r *WalletRepo) CreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	createdAt := now()
	wallet := models.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	_, err := r.DB.ExecContext(ctx, createWallet, wallet.ID, wallet.UserID, toMicro(createdAt), toMicro(createdAt))
	switch {
	case err == nil:
		return wallet, nil
	case isConstraint(err, sqlite3.ErrConstraintUnique):
		return models.Wallet{}, apperrors.ErrWalletAlreadyExists
	case isConstraint(err, sqlite3.ErrConstraintForeignKey):
		return models.Wallet{}, apperrors.ErrUserNotFound
	default:
		return models.Wallet{}, fmt.Errorf("db error: %w", err)
	}
}

const getWallet = `-- name: GetWallet
SELECT id, user_id, balance, created_at, updated_at FROM wallets
WHERE user_id = ?
`

// GetWallet ignores forUpdate: the write lock is already held since the transaction began
func (r *WalletRepo) GetWallet(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error) {
	wallet, err := scanWallet(r.DB.QueryRowContext(ctx, getWallet, userID))

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, sql.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const updateBalance = `-- name: UpdateBalance
UPDATE wallets
SET balance = ?, updated_at = ?
WHERE id = ?
RETURNING id, user_id, balance, created_at, updated_at
`

func (r *WalletRepo) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) (models.Wallet, error) {
	if balance.IsNegative() {
		return models.Wallet{}, apperrors.ErrInsufficientFunds
	}

	wallet, err := scanWallet(r.DB.QueryRowContext(ctx, updateBalance, balance.String(), toMicro(now()), walletID))

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, sql.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

func scanWallet(row *sql.Row) (models.Wallet, error) {
	var (
		w                    models.Wallet
		createdAt, updatedAt int64
	)

	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &createdAt, &updatedAt)
	if err != nil {
		return models.Wallet{}, err
	}

	w.CreatedAt = fromMicro(createdAt)
	w.UpdatedAt = fromMicro(updatedAt)
	return w, nil
}
