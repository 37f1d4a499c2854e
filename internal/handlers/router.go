package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/handlers/middleware"
	"github.com/nkiryanov/walletledger/internal/logger"
	"github.com/nkiryanov/walletledger/internal/models"
)

// Origins allowed when nothing is configured: local frontends only
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://localhost:8081",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8080",
	"http://127.0.0.1:8081",
}

func NewRouter(
	accountService accountService,
	ledgerService ledgerService,
	corsOrigins []string,
	logger logger.Logger,
) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Method(http.MethodPost, "/", handleCreateUser(accountService, logger))
			r.Method(http.MethodGet, "/{id}", handleGetUser(accountService, logger))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Method(http.MethodPost, "/credit", handleCredit(ledgerService, logger))
			r.Method(http.MethodPost, "/debit", handleDebit(ledgerService, logger))
			r.Method(http.MethodGet, "/{userId}", handleListTransactions(ledgerService, logger))
		})

		r.Method(http.MethodGet, "/wallet/{userId}", handleWalletBalance(ledgerService, logger))
	})

	return r
}

type accountService interface {
	// Create user with empty wallet
	// Has to return apperrors.ErrUserAlreadyExists if user with the email exists
	CreateUser(ctx context.Context, name string, email string) (models.User, error)

	// Has to return apperrors.ErrUserNotFound if user not found
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
}

type ledgerService interface {
	// Has to return apperrors.ErrWalletNotFound if user has no wallet
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.Transaction, error)

	// Has to return apperrors.ErrInsufficientFunds if balance is less than amount
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.Transaction, error)

	// Has to return apperrors.ErrUserNotFound if user not found
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)

	GetBalance(ctx context.Context, userID uuid.UUID) (models.Wallet, error)
}
