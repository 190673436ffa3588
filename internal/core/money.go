// Package core defines the ledger aggregate and its value types.
//
// This file holds money parsing for the input boundary: user-entered amounts
// arrive as decimal strings and are converted to cents exactly once, so the
// rest of the engine only ever does integer arithmetic.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to positive cents.
//
// Both dot and comma decimal separators are accepted; anything past the
// second decimal digit is rounded half-up. Signs, empty strings, zero and
// non-numeric input are rejected.
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,3")   -> 1230
//	ParseAmount("12.345") -> 1235
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || whole > (1<<63-1)/100 {
		return 0, ErrInvalidAmount
	}
	var cents int64
	switch {
	case len(fracPart) >= 2:
		cents = int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
		if len(fracPart) > 2 && fracPart[2] >= '5' {
			cents++
		}
	case len(fracPart) == 1:
		cents = int64(fracPart[0]-'0') * 10
	}
	total := whole*100 + cents
	if total <= 0 {
		return 0, ErrInvalidAmount
	}
	return total, nil
}

// Units returns the whole-unit value as a float64 for display only.
// Calculations stay in cents.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}
