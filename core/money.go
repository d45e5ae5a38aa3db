package core

import (
	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 2 // 2 decimal places for currency amounts

// RoundMoney rounds an amount to monetary precision using decimal arithmetic
// to avoid floating-point drift.
func RoundMoney(v float64) float64 {
	out, _ := decimal.NewFromFloat(v).Round(monetaryPrecision).Float64()
	return out
}

// MoneyGTE reports whether a >= b when both are compared at monetary
// precision.
func MoneyGTE(a, b float64) bool {
	aDec := decimal.NewFromFloat(a).Round(monetaryPrecision)
	bDec := decimal.NewFromFloat(b).Round(monetaryPrecision)
	return aDec.GreaterThanOrEqual(bDec)
}

// MoneyGT reports whether a > b at monetary precision.
func MoneyGT(a, b float64) bool {
	aDec := decimal.NewFromFloat(a).Round(monetaryPrecision)
	bDec := decimal.NewFromFloat(b).Round(monetaryPrecision)
	return aDec.GreaterThan(bDec)
}

// MoneyMin returns the smallest of the given amounts. Panics on empty input
// (programmer error).
func MoneyMin(amounts ...float64) float64 {
	min := decimal.NewFromFloat(amounts[0])
	for _, a := range amounts[1:] {
		d := decimal.NewFromFloat(a)
		if d.LessThan(min) {
			min = d
		}
	}
	out, _ := min.Round(monetaryPrecision).Float64()
	return out
}

// MulRatio multiplies a currency amount by a ratio with decimal precision.
func MulRatio(amount, ratio float64) float64 {
	out, _ := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(ratio)).
		Round(monetaryPrecision).
		Float64()
	return out
}

// AddMoney adds two currency amounts with decimal precision.
func AddMoney(a, b float64) float64 {
	out, _ := decimal.NewFromFloat(a).
		Add(decimal.NewFromFloat(b)).
		Round(monetaryPrecision).
		Float64()
	return out
}
