package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// UnitsFromDecimal converts a decimal amount to whole currency units.
// Prices, budgets and balances are integral, so any fractional part is
// rejected rather than rounded.
func UnitsFromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("amount %s must be a whole number of units", d.String())
	}
	if d.GreaterThan(maxUnits) || d.LessThan(minUnits) {
		return 0, fmt.Errorf("amount %s is out of range", d.String())
	}
	return d.IntPart(), nil
}

// UnitsToDecimal converts whole currency units to a decimal for output.
func UnitsToDecimal(u int64) decimal.Decimal {
	return decimal.NewFromInt(u)
}

// AddUnits returns a+b for non-negative operands and false when the sum
// does not fit in an int64.
func AddUnits(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// MulUnits returns a×b for non-negative operands and false when the
// product does not fit in an int64.
func MulUnits(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}
