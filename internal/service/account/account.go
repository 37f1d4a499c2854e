package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/walletledger/internal/models"
	"github.com/nkiryanov/walletledger/internal/repository"
)

type Service struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// Create user together with the empty wallet
// Email is the identity key: users with the same normalized email are duplicates
func (s *Service) CreateUser(ctx context.Context, name string, email string) (models.User, error) {
	var user models.User

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error

		user, err = storage.User().CreateUser(ctx, strings.TrimSpace(name), NormalizeEmail(email))
		if err != nil {
			return err
		}

		_, err = storage.Wallet().CreateWallet(ctx, user.ID)
		return err
	})
	if err != nil {
		return models.User{}, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, id)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
