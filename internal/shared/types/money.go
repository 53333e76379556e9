package types

import (
	"errors"
	"fmt"
)

// ErrCountryRequired is returned when a geography lacks a country.
var ErrCountryRequired = errors.New("geography country is required")

// Money is a monetary amount in minor units (cents) with its currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"` // ISO 4217
}

// NewMoney creates a money value
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// IsZero checks whether the amount is zero
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Units returns the amount in major units as a float
func (m Money) Units() float64 {
	return float64(m.Amount) / 100
}

// String formats the amount with its currency
func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Units(), m.Currency)
}
