package offer

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// AmountDecimals is the number of fractional digits in Price and MinAmount.
const AmountDecimals = 8

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), -AmountDecimals)

// FormatAmount renders a fixed-point magnitude, e.g. 150000000 -> "1.50000000".
func FormatAmount(v uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -AmountDecimals).StringFixed(AmountDecimals)
}

// ParseAmount parses a decimal string into a fixed-point magnitude.
// More than AmountDecimals fractional digits is an error, never a rounding.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parse amount %q: negative", s)
	}
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("parse amount %q: overflows uint64", s)
	}
	scaled := d.Shift(AmountDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("parse amount %q: more than %d decimals", s, AmountDecimals)
	}
	return scaled.BigInt().Uint64(), nil
}
