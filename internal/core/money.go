// Package core provides money parsing and handling utilities.
//
// This file contains the conversion from user-entered amount text to the
// float64 stored on a Transaction, and the currency formatting used for display.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = money.USD

// ParseAmount converts amount text from a form or the command line.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. The sign
// is kept; Ledger.Add normalizes it to a magnitude. Zero is rejected here so
// the user gets the same message as from Add.
//
// Examples:
//   ParseAmount("12.34")  -> 12.34, nil
//   ParseAmount("12,34")  -> 12.34, nil
//   ParseAmount("-5")     -> -5, nil
//   ParseAmount("abc")    -> 0, *ValidationError
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return d.InexactFloat64(), nil
}

// FormatCurrency renders a value like "$1,200.00", rounding half away from
// zero to the currency's minor unit. Unknown codes fall back to go-money's
// generic formatting for that code.
func FormatCurrency(value float64, code string) string {
	if code == "" {
		code = DefaultCurrency
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	cur := money.New(0, code).Currency()
	minor := decimal.NewFromFloat(value).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatSigned renders an amount as "+ $10.00" for income and "- $10.00" for expenses.
func FormatSigned(tx Transaction, code string) string {
	prefix := "+ "
	if tx.Type == Expense {
		prefix = "- "
	}
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}
	return prefix + FormatCurrency(amount, code)
}
