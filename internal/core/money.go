// Package core provides the ledger domain model.
//
// This file contains amount parsing, validation and currency formatting.
// Amounts are exact decimals; sign lives in the transaction direction.
package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrencyCode is used until the user picks a currency.
const DefaultCurrencyCode = "INR"

// ParseAmount converts a user-entered decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs are rejected: direction carries the sign, amounts never do.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

// ValidateAmount enforces amount >= 0.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// CurrencySymbol returns the display symbol for an ISO currency code,
// falling back to the code itself when it is unknown.
func CurrencySymbol(code string) string {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return code
	}
	return cur.Grapheme
}

// KnownCurrency reports whether code is a currency go-money can format.
func KnownCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// FormatAmount renders d in the given currency, e.g. "₹1,250.00".
func FormatAmount(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return d.StringFixed(2) + " " + code
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}
