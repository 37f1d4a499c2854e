package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/handlers/render"
	"github.com/nkiryanov/walletledger/internal/logger"
)

func handleWalletBalance(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		UserID  uuid.UUID       `json:"userId"`
		Balance decimal.Decimal `json:"balance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseID(w, r, chi.URLParam(r, "userId"))
		if !ok {
			return
		}

		wallet, err := ledgerService.GetBalance(r.Context(), userID)
		if err != nil {
			renderServiceError(w, r, err, l)
			return
		}

		render.JSON(w, response{UserID: wallet.UserID, Balance: wallet.Balance})
	})
}
