package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. All arithmetic is integer so plan price times
// duration is exact.
type Money int64

// NewMoney builds Money from whole units and cents.
func NewMoney(units, cents int64) Money {
	return Money(units*100 + cents)
}

// MoneyFromFloat converts a decimal amount (e.g. 129.9) to cents, rounding
// half away from zero.
func MoneyFromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

// Cents returns the raw amount in cents.
func (m Money) Cents() int64 { return int64(m) }

// Float returns the amount as a decimal number of units.
func (m Money) Float() float64 { return float64(m) / 100 }

// Mul multiplies the amount by an integer factor.
func (m Money) Mul(n int) Money { return m * Money(n) }

// String formats the amount with two decimals and a dot separator.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes Money as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*m = 0
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	*m = MoneyFromFloat(v)
	return nil
}

var _ json.Marshaler = Money(0)
