// Package core provides the obligation domain model and value types.
//
// This file contains money parsing. Amounts travel as decimal strings on the
// wire and are stored internally as integer cents.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up past the second decimal place. Only positive amounts are accepted.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot.
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() || !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}

	v := cents.IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// Decimal returns the amount as a decimal value for wire formatting.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// StringFixed formats the amount with two decimal places (e.g. "12.34").
func (m Money) StringFixed() string {
	return m.Decimal().StringFixed(2)
}
