package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value stored as BIGINT micros (10^-6) to avoid floating point errors.
type Amount int64

const microsPerUnit = 1_000_000

var (
	microsFactor = decimal.NewFromInt(microsPerUnit)
	maxMicros    = decimal.NewFromInt(math.MaxInt64)
	minMicros    = decimal.NewFromInt(math.MinInt64)

	ErrAmountPrecision  = errors.New("amount supports at most 6 decimal places")
	ErrAmountOutOfRange = errors.New("amount is out of range")
)

// NewAmount creates an Amount from whole units.
func NewAmount(units int64) Amount {
	return Amount(units * microsPerUnit)
}

// FromDecimal converts a decimal.Decimal to micros.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Mul(microsFactor)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrAmountPrecision
	}
	if scaled.GreaterThan(maxMicros) || scaled.LessThan(minMicros) {
		return 0, ErrAmountOutOfRange
	}
	return Amount(scaled.IntPart()), nil
}

// ParseAmount parses a decimal string such as "12.50".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// Decimal converts the micros to a shopspring/decimal.Decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(microsFactor)
}

// Micros returns the raw storage value.
func (a Amount) Micros() int64 {
	return int64(a)
}

// String renders the amount with two decimal places.
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a decimal string so clients never see float rounding.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.Decimal().String() + `"`), nil
}

// UnmarshalJSON accepts both "12.50" and 12.5.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	b = bytes.Trim(b, `"`)
	parsed, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
