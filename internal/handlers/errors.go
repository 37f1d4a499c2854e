package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/handlers/render"
	"github.com/nkiryanov/walletledger/internal/logger"
)

// Service errors the clients see as is. Anything else is unexpected
var errorStatuses = []struct {
	err    error
	status int
}{
	{apperrors.ErrUserNotFound, http.StatusNotFound},
	{apperrors.ErrWalletNotFound, http.StatusNotFound},
	{apperrors.ErrInsufficientFunds, http.StatusBadRequest},
	{apperrors.ErrInvalidAmount, http.StatusBadRequest},
	{apperrors.ErrUserAlreadyExists, http.StatusConflict},
	{apperrors.ErrStorageTimeout, http.StatusServiceUnavailable},
}

func renderServiceError(w http.ResponseWriter, r *http.Request, err error, l logger.Logger) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			render.Error(w, r, e.status, e.err.Error())
			return
		}
	}

	l.Error("Unexpected error", "error", err, "method", r.Method, "path", r.URL.Path)
	render.Error(w, r, http.StatusInternalServerError, "Unexpected error", err.Error())
}

// Parse uuid path parameter. Writes bad request if it is not valid
func parseID(w http.ResponseWriter, r *http.Request, value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		render.Error(w, r, http.StatusBadRequest, "Invalid id: "+value)
		return uuid.Nil, false
	}
	return id, true
}
