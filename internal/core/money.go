// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from form input
// and formatting them for display with a single implicit currency unit.
package core

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "$"

// ParseAmount converts a decimal string to an exact amount rounded to cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted and the
// value is rounded half-up to two places. Zero is allowed, negative values are
// rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("0")      -> 0.00
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatAmount renders d as "$1,234.56", or "-$1,234.56" when negative.
func FormatAmount(d decimal.Decimal) string {
	d = d.Round(2)
	neg := d.IsNegative()

	intPart, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	grouped := intPart
	// humanize.Comma works on int64; larger values are left ungrouped.
	if len(intPart) <= 18 {
		grouped = humanize.Comma(d.Abs().IntPart())
	}

	s := CurrencySymbol + grouped + "." + frac
	if neg {
		return "-" + s
	}
	return s
}
