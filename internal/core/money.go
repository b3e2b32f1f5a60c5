// Package core provides the ledger records, currency normalization and the
// aggregate computations over a ledger snapshot.
//
// This file contains lenient number parsing and the conversion of amounts
// into the base currency.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultRate is the exchange rate used when none has been stored yet.
var DefaultRate = decimal.NewFromInt(12700)

var one = decimal.NewFromInt(1)

// Bounds on accepted amounts. Anything past them counts as malformed: a
// large exponent would make rounding or truncation expand it digit by digit.
const (
	maxInputLen       = 64
	maxIntegerDigits  = 30
	maxFractionDigits = 30
)

func init() {
	// Persisted records keep amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseLenientNumber parses a user-entered number. Blank or malformed input
// yields zero instead of an error.
//
// Examples:
//   ParseLenientNumber("5000")  -> 5000
//   ParseLenientNumber(" 2.5 ") -> 2.5
//   ParseLenientNumber("")      -> 0
//   ParseLenientNumber("abc")   -> 0
//   ParseLenientNumber("1e3")   -> 1000
//   ParseLenientNumber("1e400") -> 0
func ParseLenientNumber(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxInputLen {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() || !InRange(d) {
		return decimal.Zero
	}
	return d
}

// InRange reports whether d has at most 30 integer and 30 fractional digits.
func InRange(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	exp := int64(d.Exponent())
	return exp >= -maxFractionDigits && int64(d.NumDigits())+exp <= maxIntegerDigits
}

// bounded returns d, or zero when d is out of range.
func bounded(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() || !InRange(d) {
		return decimal.Zero
	}
	return d
}

// Normalize converts amount into the base currency. Base amounts are
// returned unchanged, foreign ones are multiplied by rate. Callers clamp the
// rate with ClampRate first.
func Normalize(amount decimal.Decimal, c Currency, rate decimal.Decimal) decimal.Decimal {
	if !c.IsForeign() {
		return amount
	}
	return amount.Mul(rate)
}

// ClampRate enforces the minimum exchange rate of 1. Out-of-range rates
// also become 1.
func ClampRate(rate decimal.Decimal) decimal.Decimal {
	if !InRange(rate) || rate.LessThan(one) {
		return one
	}
	return rate
}
