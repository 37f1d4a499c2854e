package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/repository"
	"github.com/nkiryanov/walletledger/internal/testutil"
)

func TestWallet(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("CreateWallet", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user, err := storage.User().CreateUser(t.Context(), "Alice", "a@x.com")
			require.NoError(t, err)

			t.Run("create ok", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					wallet, err := storage.Wallet().CreateWallet(t.Context(), user.ID)

					require.NoError(t, err, "wallet has to be created ok")
					require.NotEqual(t, uuid.Nil, wallet.ID)
					require.Equal(t, user.ID, wallet.UserID)
					require.True(t, wallet.Balance.IsZero(), "new wallet must have zero balance")
				})
			})

			t.Run("create duplicate", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().CreateWallet(t.Context(), user.ID)
					require.NoError(t, err, "first wallet creation should be ok")

					_, err = storage.Wallet().CreateWallet(t.Context(), user.ID)

					require.ErrorIs(t, err, apperrors.ErrWalletAlreadyExists, "one wallet per user only")
				})
			})

			t.Run("create for unknown user", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().CreateWallet(t.Context(), uuid.New())

					require.ErrorIs(t, err, apperrors.ErrUserNotFound)
				})
			})
		})
	})

	t.Run("GetWallet", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user, err := storage.User().CreateUser(t.Context(), "Alice", "a@x.com")
			require.NoError(t, err)
			created, err := storage.Wallet().CreateWallet(t.Context(), user.ID)
			require.NoError(t, err)

			for _, forUpdate := range []bool{false, true} {
				wallet, err := storage.Wallet().GetWallet(t.Context(), user.ID, forUpdate)

				require.NoError(t, err, "getting wallet should not fail")
				require.Equal(t, created.ID, wallet.ID)
				require.Equal(t, user.ID, wallet.UserID)
			}

			t.Run("get nonexistent wallet", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().GetWallet(t.Context(), uuid.New(), true)

					require.ErrorIs(t, err, apperrors.ErrWalletNotFound, "should return well known error")
				})
			})
		})
	})

	t.Run("UpdateBalance", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user, err := storage.User().CreateUser(t.Context(), "Alice", "a@x.com")
			require.NoError(t, err)
			wallet, err := storage.Wallet().CreateWallet(t.Context(), user.ID)
			require.NoError(t, err)

			t.Run("update ok", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					updated, err := storage.Wallet().UpdateBalance(t.Context(), wallet.ID, decimal.RequireFromString("100.25"))
					require.NoError(t, err)
					require.True(t, updated.Balance.Equal(decimal.RequireFromString("100.25")))

					stored, err := storage.Wallet().GetWallet(t.Context(), user.ID, false)
					require.NoError(t, err)
					require.True(t, stored.Balance.Equal(decimal.RequireFromString("100.25")), "balance has to be persisted")
				})
			})

			t.Run("high precision kept", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					amount := decimal.RequireFromString("12345678901234567890.123456789")

					updated, err := storage.Wallet().UpdateBalance(t.Context(), wallet.ID, amount)

					require.NoError(t, err)
					require.True(t, updated.Balance.Equal(amount), "numeric must not lose precision")
				})
			})

			t.Run("negative balance rejected by schema", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().UpdateBalance(t.Context(), wallet.ID, decimal.NewFromInt(-1))

					require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
				})
			})

			t.Run("unknown wallet", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().UpdateBalance(t.Context(), uuid.New(), decimal.NewFromInt(1))

					require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
				})
			})
		})
	})
}
