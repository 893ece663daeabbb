package currency

import (
	"errors"
	"testing"

	"fintrack/internal/core"
)

func TestLookupPrecision(t *testing.T) {
	cases := []struct {
		code      string
		precision int
		symbol    string
	}{
		{"EUR", 2, "€"},
		{"usd", 2, "$"},
		{"JPY", 0, "¥"},
		{"SEK", 2, "SEK"},
	}
	for _, tc := range cases {
		cur, err := Lookup(tc.code)
		if err != nil {
			t.Fatalf("%s: %v", tc.code, err)
		}
		if cur.Precision != tc.precision || cur.Symbol != tc.symbol {
			t.Fatalf("%s: got %+v", tc.code, cur)
		}
	}
}

func TestLookupRejectsUnknown(t *testing.T) {
	if _, err := Lookup("ZZZ"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCatalogDedupesAndSorts(t *testing.T) {
	c, err := NewCatalog([]string{"USD", "EUR", "usd"})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	list := c.List()
	if len(list) != 2 || list[0].Code != "EUR" || list[1].Code != "USD" {
		t.Fatalf("unexpected list %+v", list)
	}
	if _, ok := c.Get("eur"); !ok {
		t.Fatalf("expected EUR to be present")
	}
	if len(Default().List()) != len(DefaultCodes) {
		t.Fatalf("default catalog size mismatch")
	}
}
