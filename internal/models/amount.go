package models

import (
	"github.com/shopspring/decimal"
)

// Amounts are kept in cents
const AmountScale = 2

const (
	maxAmountExponent = 15

	// 34 decimal digits fit in 113 bits, enough for MaxAmount written with trailing zeros
	maxAmountDigits          = 34
	maxAmountCoefficientBits = 113
)

var (
	MinAmount = decimal.New(1, -AmountScale)
	MaxAmount = decimal.New(1, maxAmountExponent)
)

// ValidAmount reports whether amount is a whole number of cents in [MinAmount, MaxAmount]
// Exponent and coefficient size are checked first, so huge values are rejected before any rescaling
func ValidAmount(amount decimal.Decimal) bool {
	exp := amount.Exponent()
	if exp < -maxAmountDigits || exp > maxAmountExponent {
		return false
	}

	if amount.Coefficient().BitLen() > maxAmountCoefficientBits {
		return false
	}

	if amount.LessThan(MinAmount) || amount.GreaterThan(MaxAmount) {
		return false
	}

	return amount.Equal(amount.Truncate(AmountScale))
}
