package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits shown for money.
const MoneyPlaces = 2

// ParseDecimal parses a caller-supplied number. Blank input is an error.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, newError(KindInvalidValue, "", "number is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, newError(KindInvalidValue, "", "not a number: %q", s)
	}
	return d, nil
}

// MustParseDecimal is ParseDecimal for literals in tests and fixtures.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Money formats an amount with two decimals, e.g. "-10.00".
func Money(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

func requirePositiveQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return newError(KindInvalidValue, "", "quantity must be greater than zero, got %s", q)
	}
	return nil
}

func requireNonNegativeMoney(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return newError(KindInvalidValue, "", "amount must be zero or positive, got %s", amount)
	}
	return nil
}
