package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeCredit = "CREDIT"
	TransactionTypeDebit  = "DEBIT"
)

const (
	TransactionStatusSuccess = "SUCCESS"
)

// Transaction is an append-only ledger record
// Amount is always positive, the direction is defined by Type
type Transaction struct {
	ID        uuid.UUID
	CreatedAt time.Time
	WalletID  uuid.UUID
	UserID    uuid.UUID
	Type      string
	Status    string
	Amount    decimal.Decimal
}

// TransactionEvent announces a committed transaction to downstream consumers
type TransactionEvent struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	UserID        uuid.UUID       `json:"userId"`
	WalletID      uuid.UUID       `json:"walletId"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewTransactionEvent(t Transaction) TransactionEvent {
	return TransactionEvent{
		TransactionID: t.ID,
		UserID:        t.UserID,
		WalletID:      t.WalletID,
		Amount:        t.Amount,
		Type:          t.Type,
		Timestamp:     t.CreatedAt,
	}
}
