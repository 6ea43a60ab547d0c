package utils

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of base-unit digits behind one whole unit
const Decimals = 18

// OneUnit is 10^18 base units
var OneUnit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// ParseUnits converts a decimal amount in whole units ("1.5") to base units.
// More than 18 fractional digits or a negative value is an error.
func ParseUnits(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	scaled := d.Shift(Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, Decimals)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q overflows", s)
	}
	return out, nil
}

// ParseAmount accepts either a base-unit integer ("1000") or a unit amount
// with a "u" suffix ("0.5u").
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "u") {
		return ParseUnits(strings.TrimSuffix(s, "u"))
	}
	out, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base-unit amount %q: %w", s, err)
	}
	return out, nil
}

// FormatUnits renders base units as a unit amount without trailing zeros
func FormatUnits(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -Decimals).String()
}

func Uint256ToString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
