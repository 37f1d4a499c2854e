package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, name string, email string) (models.User, error)

	// Get user by it's id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}

// Wallet repository interface
type WalletRepo interface {
	// Create wallet with zero balance for the user
	// If the user has wallet already must return apperrors.ErrWalletAlreadyExists
	CreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)

	// Get user's wallet
	// With forUpdate the wallet is locked until the end of the transaction, concurrent lockers wait
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetWallet(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error)

	// Set wallet balance. Caller must hold the wallet lock
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) (models.Wallet, error)
}

// Transaction repository interface. Transactions are append-only
type TransactionRepo interface {
	// Create transaction record
	// If the wallet does not exist must return apperrors.ErrWalletNotFound
	CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// List user's transactions, most recent first
	// Unknown user is not an error, empty list returned
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
}

type Storage interface {
	User() UserRepo
	Wallet() WalletRepo
	Transaction() TransactionRepo

	// Run fn in a single database transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
