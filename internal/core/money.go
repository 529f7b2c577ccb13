package core

// Money arithmetic for account balances. Everything here works on
// shopspring decimals; floats never enter balance math.

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SignedDelta converts a (type, magnitude) pair into the value added to an
// account balance: negative for expenses, positive for everything else.
func SignedDelta(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Neg()
	}
	return amount
}

// ParseAmount parses a user-supplied amount string into an exact decimal.
// It accepts both dot and comma as the decimal separator and rejects
// non-positive values.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
