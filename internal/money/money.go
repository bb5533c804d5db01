package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// MaxScale is the number of decimal places amounts are stored with.
// Matches the NUMERIC(20,4) columns in the schema.
const MaxScale = 4

// Parse converts a caller-supplied amount string into a decimal, rejecting
// non-positive values and excess precision. Amounts never travel as floats.
func Parse(input string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return Validate(value)
}

// Validate enforces the positivity and scale rules on an already-decoded
// decimal.
func Validate(value decimal.Decimal) (decimal.Decimal, error) {
	if !value.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if value.Exponent() < -MaxScale {
		return decimal.Zero, ErrTooManyDecimals
	}
	return value, nil
}

// Format renders an amount at storage scale for API responses.
func Format(value decimal.Decimal) string {
	return value.StringFixedBank(MaxScale)
}
