package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (id, user_id, balance)
VALUES ($1, $2, 0)
RETURNING id, user_id, balance, created_at, updated_at
`

func (r *WalletRepo) CreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, createWallet, uuid.New(), userID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
			return wallet, apperrors.ErrWalletAlreadyExists
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
			return wallet, apperrors.ErrUserNotFound
		default:
			return wallet, fmt.Errorf("db error: %w", err)
		}
	}

	return wallet, nil
}

const getWallet = `-- name: GetWallet
SELECT id, user_id, balance, created_at, updated_at FROM wallets
WHERE user_id = $1
`

// Row lock is taken on the wallet row only, so wallets of different users never block each other
const getWalletForUpdate = getWallet + `FOR UPDATE
`

func (r *WalletRepo) GetWallet(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error) {
	query := getWallet
	if forUpdate {
		query = getWalletForUpdate
	}

	rows, _ := r.DB.Query(ctx, query, userID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const updateBalance = `-- name: UpdateBalance
UPDATE wallets
SET balance = $2, updated_at = now()
WHERE id = $1
RETURNING id, user_id, balance, created_at, updated_at
`

func (r *WalletRepo) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, updateBalance, walletID, balance)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation:
		return wallet, apperrors.ErrInsufficientFunds
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
