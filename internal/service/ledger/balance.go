package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/walletledger/internal/apperrors"
	"github.com/nkiryanov/walletledger/internal/models"
)

// Apply returns the balance after the transaction of txType with amount
// Debit of more than current balance fails with apperrors.ErrInsufficientFunds
func Apply(current decimal.Decimal, amount decimal.Decimal, txType string) (decimal.Decimal, error) {
	switch txType {
	case models.TransactionTypeCredit:
		return current.Add(amount), nil
	case models.TransactionTypeDebit:
		if current.LessThan(amount) {
			return current, apperrors.ErrInsufficientFunds
		}
		return current.Sub(amount), nil
	default:
		return current, fmt.Errorf("unknown transaction type %q", txType)
	}
}
