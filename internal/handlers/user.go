package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/walletledger/internal/handlers/render"
	"github.com/nkiryanov/walletledger/internal/logger"
	"github.com/nkiryanov/walletledger/internal/models"
)

type userResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func handleCreateUser(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		Name  string `json:"name" validate:"required,notblank,max=255"`
		Email string `json:"email" validate:"required,notblank,email,max=255"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := accountService.CreateUser(r.Context(), req.Name, req.Email)
		if err != nil {
			renderServiceError(w, r, err, l)
			return
		}

		render.Created(w, newUserResponse(user))
	})
}

func handleGetUser(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		user, err := accountService.GetUser(r.Context(), id)
		if err != nil {
			renderServiceError(w, r, err, l)
			return
		}

		render.JSON(w, newUserResponse(user))
	})
}
