package store

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Patches carry only the fields to change; nil means "leave as is".
type (
	AccountPatch struct {
		Name        *string
		Type        *core.AccountType
		Currency    *string
		Balance     *decimal.Decimal
		Active      *bool
		AllowDelete *bool
	}

	CategoryPatch struct {
		ParentID *string
		Name     *string
		Type     *core.CategoryType
		Color    *string
		Icon     *string
	}

	TransactionPatch struct {
		FromAccountID *string
		ToAccountID   *string
		CategoryID    *string
		Amount        *decimal.Decimal
		Description   *string
		Date          *core.Date
		EntryType     *core.EntryType
		Status        *core.TransactionStatus
	}

	PreferencePatch struct {
		Currency                *string
		Theme                   *string
		Language                *string
		DefaultIncomeAccountID  *string
		DefaultExpenseAccountID *string
		MigrationCompleted      *bool
	}
)

func (p AccountPatch) Apply(a *core.Account) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Currency != nil {
		a.Currency = *p.Currency
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	if p.AllowDelete != nil {
		a.AllowDelete = *p.AllowDelete
	}
}

func (p CategoryPatch) Apply(c *core.Category) {
	if p.ParentID != nil {
		c.ParentID = *p.ParentID
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
}

func (p TransactionPatch) Apply(t *core.Transaction) {
	if p.FromAccountID != nil {
		t.FromAccountID = *p.FromAccountID
	}
	if p.ToAccountID != nil {
		t.ToAccountID = *p.ToAccountID
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.EntryType != nil {
		t.EntryType = *p.EntryType
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

func (p PreferencePatch) Apply(pref *core.UserPreference) {
	if p.Currency != nil {
		pref.Currency = *p.Currency
	}
	if p.Theme != nil {
		pref.Theme = *p.Theme
	}
	if p.Language != nil {
		pref.Language = *p.Language
	}
	if p.DefaultIncomeAccountID != nil {
		pref.DefaultIncomeAccountID = *p.DefaultIncomeAccountID
	}
	if p.DefaultExpenseAccountID != nil {
		pref.DefaultExpenseAccountID = *p.DefaultExpenseAccountID
	}
	if p.MigrationCompleted != nil {
		pref.MigrationCompleted = *p.MigrationCompleted
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p PreferencePatch) IsEmpty() bool {
	return p == PreferencePatch{}
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}
