// Package currency provides the read-only ISO currency reference list.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/currency"

	"fintrack/internal/core"
)

// symbols covers the codes offered to users; unknown codes fall back to the
// ISO code itself.
var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF",
	"MMK": "K",
	"INR": "₹",
	"CNY": "¥",
	"THB": "฿",
	"SGD": "S$",
	"AUD": "A$",
	"CAD": "C$",
}

// DefaultCodes is the reference list exposed when no explicit list is given.
var DefaultCodes = []string{"EUR", "USD", "GBP", "JPY", "CHF", "MMK", "INR", "CNY", "THB", "SGD", "AUD", "CAD"}

// Catalog is an immutable set of currencies keyed by ISO code.
type Catalog struct {
	byCode map[string]core.Currency
	codes  []string
}

// NewCatalog builds a catalog from ISO codes. Unknown codes are rejected.
func NewCatalog(codes []string) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]core.Currency, len(codes))}
	for _, code := range codes {
		cur, err := Lookup(code)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byCode[cur.Code]; dup {
			continue
		}
		c.byCode[cur.Code] = cur
		c.codes = append(c.codes, cur.Code)
	}
	sort.Strings(c.codes)
	return c, nil
}

// Default returns the catalog of DefaultCodes.
func Default() *Catalog {
	c, err := NewCatalog(DefaultCodes)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup resolves a single ISO code.
func Lookup(code string) (core.Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return core.Currency{}, core.Validation("currency", fmt.Sprintf("unknown ISO code %q", code))
	}
	iso := unit.String()
	scale, _ := currency.Standard.Rounding(unit)
	sym, ok := symbols[iso]
	if !ok {
		sym = iso
	}
	return core.Currency{Code: iso, Symbol: sym, Precision: scale}, nil
}

// List returns the catalog sorted by code.
func (c *Catalog) List() []core.Currency {
	out := make([]core.Currency, 0, len(c.codes))
	for _, code := range c.codes {
		out = append(out, c.byCode[code])
	}
	return out
}

// Get returns the currency for code, if present.
func (c *Catalog) Get(code string) (core.Currency, bool) {
	cur, ok := c.byCode[strings.ToUpper(code)]
	return cur, ok
}
