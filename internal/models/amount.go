package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitExponent is fixed at 2: every supported currency is expressed in
// hundredths (cents, fils, piastres). Core arithmetic uses int64 minor units
// throughout; decimals appear only at the API and display boundary.
const minorUnitExponent = 2

// ParseAmount converts a decimal string such as "12.50" into integer minor
// units. It rejects negative, zero and sub-cent amounts.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", d.String())
	}
	scaled := d.Shift(minorUnitExponent)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), minorUnitExponent)
	}
	return scaled.IntPart(), nil
}

// FormatAmount renders minor units back into a decimal string ("1250" -> "12.50").
func FormatAmount(minor int64) string {
	return decimal.New(minor, -minorUnitExponent).StringFixed(minorUnitExponent)
}
