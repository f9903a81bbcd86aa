package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for zero, negative or unparsable amounts.
var ErrInvalidAmount = errors.New("amount must be a positive number")

// ErrAmountPrecision is returned for amounts finer than one cent.
var ErrAmountPrecision = fmt.Errorf("%w with at most two decimal places", ErrInvalidAmount)

// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ValidatePositive rejects amounts that are not strictly positive or that
// carry more than two decimal places. An accepted amount moves balances by
// exactly its own value.
func ValidatePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Equal(Round2(d)) {
		return ErrAmountPrecision
	}
	return nil
}

// ParseAmount parses a decimal string and validates it as a transfer amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidatePositive(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
