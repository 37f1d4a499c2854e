package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/handlers/render"
	"github.com/nkiryanov/walletledger/internal/logger"
	"github.com/nkiryanov/walletledger/internal/models"
)

type transactionResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	WalletID  uuid.UUID       `json:"walletId"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

func newTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		WalletID:  t.WalletID,
		Amount:    t.Amount,
		Type:      t.Type,
		Status:    t.Status,
		Timestamp: t.CreatedAt,
	}
}

type transactionFunc func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.Transaction, error)

func handleTransaction(apply transactionFunc, l logger.Logger) http.Handler {
	type request struct {
		UserID uuid.UUID       `json:"userId" validate:"required"`
		Amount decimal.Decimal `json:"amount" validate:"amount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		t, err := apply(r.Context(), req.UserID, req.Amount)
		if err != nil {
			renderServiceError(w, r, err, l)
			return
		}

		render.Created(w, newTransactionResponse(t))
	})
}

func handleCredit(ledgerService ledgerService, l logger.Logger) http.Handler {
	return handleTransaction(ledgerService.Credit, l)
}

func handleDebit(ledgerService ledgerService, l logger.Logger) http.Handler {
	return handleTransaction(ledgerService.Debit, l)
}

func handleListTransactions(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseID(w, r, chi.URLParam(r, "userId"))
		if !ok {
			return
		}

		transactions, err := ledgerService.ListTransactions(r.Context(), userID)
		if err != nil {
			renderServiceError(w, r, err, l)
			return
		}

		response := make([]transactionResponse, 0, len(transactions))
		for _, t := range transactions {
			response = append(response, newTransactionResponse(t))
		}
		render.JSON(w, response)
	})
}
