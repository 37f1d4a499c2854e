package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletAlreadyExists = errors.New("wallet already exists for this user")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be between 0.01 and 1000000000000000 with at most 2 decimal places")

	// Storage did not finish the unit of work in time. Nothing was committed, so the caller may retry
	ErrStorageTimeout = errors.New("storage timeout")
)
