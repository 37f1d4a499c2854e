package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/models"
	"github.com/nkiryanov/walletledger/internal/repository"
)

const defaultCommitTimeout = 5 * time.Second

// Notifier is told about every committed transaction
// Notify must not block the caller
type Notifier interface {
	Notify(t models.Transaction)
}

type noopNotifier struct{}

func (noopNotifier) Notify(models.Transaction) {}

type Option func(*Service)

// Bound the whole lock-apply-record-commit unit. Default is 5s
func WithCommitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.commitTimeout = d
		}
	}
}

type Service struct {
	storage  repository.Storage
	notifier Notifier

	commitTimeout time.Duration
	now           func() time.Time
}

func NewService(storage repository.Storage, notifier Notifier, opts ...Option) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}

	s := &Service{
		storage:       storage,
		notifier:      notifier,
		commitTimeout: defaultCommitTimeout,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.Transaction, error) {
	return s.record(ctx, userID, amount, models.TransactionTypeCredit)
}

func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.Transaction, error) {
	return s.record(ctx, userID, amount, models.TransactionTypeDebit)
}

// Lock the wallet, apply the amount and record the transaction in one unit of work
// Notifier is called only after the unit is committed
func (s *Service) record(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType string) (models.Transaction, error) {
	if !models.ValidAmount(amount) {
		return models.Transaction{}, apperrors.ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	var created models.Transaction
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		wallet, err := storage.Wallet().GetWallet(ctx, userID, true)
		if err != nil {
			return err
		}

		balance, err := Apply(wallet.Balance, amount, txType)
		if err != nil {
			return err
		}

		_, err = storage.Wallet().UpdateBalance(ctx, wallet.ID, balance)
		if err != nil {
			return err
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("can't generate transaction id. Err: %w", err)
		}

		// Stamped while the wallet lock is held, so history order follows commit order
		created, err = storage.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:        id,
			CreatedAt: s.now().UTC().Truncate(time.Microsecond),
			WalletID:  wallet.ID,
			UserID:    wallet.UserID,
			Type:      txType,
			Status:    models.TransactionStatusSuccess,
			Amount:    amount,
		})
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.Transaction{}, fmt.Errorf("%w: %w", apperrors.ErrStorageTimeout, err)
	default:
		return models.Transaction{}, err
	}

	s.notifier.Notify(created)

	return created, nil
}

// List user's transactions, most recent first
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	_, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.storage.Transaction().ListTransactions(ctx, userID)
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	return s.storage.Wallet().GetWallet(ctx, userID, false)
}
