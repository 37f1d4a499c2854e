package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, created_at, name, email)
VALUES (?, ?, ?, ?)
`

func (r *UserRepo) CreateUser(ctx context.Context, name string, email string) (models.User, error) {
	user := models.User{
		ID:        uuid.New(),
		CreatedAt: now(),
		Name:      name,
		Email:     email,
	}

	_, err := r.DB.ExecContext(ctx, createUser, user.ID, toMicro(user.CreatedAt), user.Name, user.Email)
	switch {
	case err == nil:
		return user, nil
	case isConstraint(err, sqlite3.ErrConstraintUnique):
		return models.User{}, apperrors.ErrUserAlreadyExists
	default:
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, name, email FROM users
WHERE id = ?
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var (
		u         models.User
		createdAt int64
	)

	err := r.DB.QueryRowContext(ctx, getUserByID, id).Scan(&u.ID, &createdAt, &u.Name, &u.Email)
	switch {
	case err == nil:
		u.CreatedAt = fromMicro(createdAt)
		return u, nil
	case errors.Is(err, sql.ErrNoRows):
		return u, apperrors.ErrUserNotFound
	default:
		return u, fmt.Errorf("db error: %w", err)
	}
}
