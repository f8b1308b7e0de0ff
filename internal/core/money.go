// Package core holds the canonical data model of the ledger engine.
//
// This file contains parsing for upstream monetary values. The upstream
// API is inconsistent: DecimalFields arrive as strings, sometimes with
// thousands separators ("1,200.50"), while other amounts arrive as raw
// JSON numbers.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses an upstream monetary value from its string form.
// Thousands separators are stripped before parsing. The empty string is
// treated as zero, matching the upstream behaviour of absent fields.
//
// Examples:
//
//	ParseAmount("1,200.50") -> 1200.50, nil
//	ParseAmount("300")      -> 300, nil
//	ParseAmount("")         -> 0, nil
//	ParseAmount("abc")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
