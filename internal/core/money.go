package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// grouping characters and zero are rejected: amounts are magnitudes and the
// direction of a transaction comes from its entry type.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Validation("amount", "required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, Validation("amount", "not a number")
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, Validation("amount", "not a number")
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validation("amount", "not a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, Validation("amount", ErrInvalidAmount.Error())
	}
	return d, nil
}

// Magnitude returns |d|. Stored amounts should already be non-negative.
func Magnitude(d decimal.Decimal) decimal.Decimal {
	return d.Abs()
}

// FormatAmount renders d with the given number of fraction digits.
func FormatAmount(d decimal.Decimal, precision int) string {
	if precision < 0 {
		precision = 2
	}
	return d.StringFixed(int32(precision))
}
