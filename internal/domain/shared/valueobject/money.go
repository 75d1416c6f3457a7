package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	INR Currency = "INR" // Indian Rupee (default)
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is the storefront's pricing currency
const DefaultCurrency = INR

var hundred = decimal.NewFromInt(100)

// Money is an immutable monetary amount in a single currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// Of creates Money in the default currency
func Of(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: DefaultCurrency}
}

// Zero returns a zero-value Money in the default currency
func Zero() Money {
	return Money{amount: decimal.Zero, currency: DefaultCurrency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	if m.currency == "" {
		return DefaultCurrency
	}
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of both amounts.
// Returns error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency() != other.Currency() {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.Currency(), other.Currency())
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.Currency()}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns the difference of both amounts.
// Returns error if currencies don't match.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency() != other.Currency() {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.Currency(), other.Currency())
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.Currency()}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Multiply returns a new Money multiplied by the given factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.Currency()}
}

// MultiplyByInt returns a new Money multiplied by an integer
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// Round returns a new Money rounded to the specified decimal places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.Currency()}
}

// ApplyDiscount returns the Money after removing discountPercent percent, rounded to paise
func (m Money) ApplyDiscount(discountPercent decimal.Decimal) Money {
	if discountPercent.IsZero() {
		return m
	}
	discount := m.amount.Mul(discountPercent).Div(hundred)
	return Money{amount: m.amount.Sub(discount).Round(2), currency: m.Currency()}
}

// Equals returns true if both Money values have the same amount and currency
func (m Money) Equals(other Money) bool {
	return m.Currency() == other.Currency() && m.amount.Equal(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.Currency())
}

// StringFixed returns the amount as a string with 2 decimal places
func (m Money) StringFixed() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(2),
		Currency: m.Currency(),
	})
}

// Sum adds a list of Money values in the default currency
func Sum(values ...Money) Money {
	total := Zero()
	for _, v := range values {
		total = total.MustAdd(v)
	}
	return total
}
