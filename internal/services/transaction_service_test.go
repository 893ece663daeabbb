package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type ledgerFixture struct {
	store   *memory.Store
	income  core.Account
	expense core.Account
	food    core.Category
	salary  core.Category
}

func newLedger(t *testing.T) ledgerFixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	f := ledgerFixture{store: s}
	var err error
	if f.income, err = s.CreateAccount(ctx, "u1", core.Account{Name: "Income", Type: core.AccountBank, Active: true}); err != nil {
		t.Fatal(err)
	}
	if f.expense, err = s.CreateAccount(ctx, "u1", core.Account{Name: "Expense", Type: core.AccountCash, Active: true}); err != nil {
		t.Fatal(err)
	}
	if f.food, err = s.CreateCategory(ctx, "u1", core.Category{Name: "Food", Type: core.CategoryExpense}); err != nil {
		t.Fatal(err)
	}
	if f.salary, err = s.CreateCategory(ctx, "u1", core.Category{Name: "Salary", Type: core.CategoryIncome}); err != nil {
		t.Fatal(err)
	}
	_, err = s.CreatePreference(ctx, "u1", core.UserPreference{
		Currency:                "EUR",
		DefaultIncomeAccountID:  f.income.ID,
		DefaultExpenseAccountID: f.expense.ID,
		MigrationCompleted:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestCreateTransaction_FillsDefaultAccount(t *testing.T) {
	f := newLedger(t)
	svc := NewTransactionService(f.store, WithClock(func() time.Time { return fixedNow }))

	tests := []struct {
		name     string
		in       TransactionInput
		wantFrom string
		wantTo   string
	}{
		{
			name:     "expense uses default expense account",
			in:       TransactionInput{Amount: "12,50", Description: "lunch", EntryType: "EXPENSES", CategoryID: f.food.ID},
			wantFrom: f.expense.ID,
		},
		{
			name:   "income uses default income account",
			in:     TransactionInput{Amount: "1000", Description: "pay", EntryType: "INCOME", CategoryID: f.salary.ID},
			wantTo: f.income.ID,
		},
		{
			name:     "explicit account wins",
			in:       TransactionInput{Amount: "3", Description: "bus", EntryType: "EXPENSES", FromAccountID: f.income.ID},
			wantFrom: f.income.ID,
		},
		{
			name: "adjust gets no default",
			in:   TransactionInput{Amount: "3", Description: "fix", EntryType: "ADJUST"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CreateTransaction(context.Background(), "u1", tt.in)
			if err != nil {
				t.Fatalf("CreateTransaction: %v", err)
			}
			if got.FromAccountID != tt.wantFrom || got.ToAccountID != tt.wantTo {
				t.Errorf("accounts = %q -> %q, want %q -> %q", got.FromAccountID, got.ToAccountID, tt.wantFrom, tt.wantTo)
			}
			if got.ID == "" || got.Status != core.StatusCompleted || got.AddedBy != core.AddedManual {
				t.Errorf("stored row = %+v", got)
			}
			if got.Date.String() != "2026-03-14" {
				t.Errorf("Date = %v, want today", got.Date)
			}
		})
	}

	got, _ := f.store.ListTransactions(context.Background(), "u1", store.TransactionFilter{CategoryID: f.food.ID})
	if len(got) != 1 || !got[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("stored expense = %+v", got)
	}
}

func TestCreateTransaction_Rejects(t *testing.T) {
	f := newLedger(t)
	svc := NewTransactionService(f.store)

	valid := func(mod func(*TransactionInput)) TransactionInput {
		in := TransactionInput{Amount: "10", Description: "x", EntryType: "EXPENSES", Date: "2026-01-02"}
		mod(&in)
		return in
	}

	tests := []struct {
		name    string
		owner   string
		in      TransactionInput
		wantErr error
	}{
		{"empty owner", "", valid(func(*TransactionInput) {}), core.ErrValidation},
		{"missing amount", "u1", valid(func(in *TransactionInput) { in.Amount = "" }), core.ErrValidation},
		{"bad amount", "u1", valid(func(in *TransactionInput) { in.Amount = "ten" }), core.ErrValidation},
		{"zero amount", "u1", valid(func(in *TransactionInput) { in.Amount = "0" }), core.ErrValidation},
		{"contra not allowed", "u1", valid(func(in *TransactionInput) { in.EntryType = "CONTRA" }), core.ErrValidation},
		{"bad date", "u1", valid(func(in *TransactionInput) { in.Date = "02/01/2026" }), core.ErrValidation},
		{"bad status", "u1", valid(func(in *TransactionInput) { in.Status = "DONE" }), core.ErrValidation},
		{"bad attachment", "u1", valid(func(in *TransactionInput) { in.Attachments = []string{"not a url"} }), core.ErrValidation},
		{"unknown account", "u1", valid(func(in *TransactionInput) { in.FromAccountID = "nope" }), core.ErrNotFound},
		{"unknown category", "u1", valid(func(in *TransactionInput) { in.CategoryID = "nope" }), core.ErrNotFound},
		{"category type mismatch", "u1", valid(func(in *TransactionInput) { in.CategoryID = f.salary.ID }), core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(context.Background(), tt.owner, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	all, _ := f.store.ListTransactions(context.Background(), "u1", store.TransactionFilter{})
	if len(all) != 0 {
		t.Errorf("rejected input was stored: %+v", all)
	}
}

func TestCreateTransaction_ValidationNamesJSONField(t *testing.T) {
	svc := NewTransactionService(memory.New())
	_, err := svc.CreateTransaction(context.Background(), "u1", TransactionInput{Amount: "1", EntryType: "INCOME"})
	if err == nil || err.Error() != "description: required: validation failed" {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateTransfer(t *testing.T) {
	f := newLedger(t)
	svc := NewTransactionService(f.store)
	ctx := context.Background()

	res, err := svc.CreateTransfer(ctx, "u1", TransferInput{
		Amount:        "25",
		Date:          "2026-02-01",
		FromAccountID: f.income.ID,
		ToAccountID:   f.expense.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if res.Contra.EntryType != core.EntryContra || res.Contra.ID == "" {
		t.Fatalf("contra = %+v", res.Contra)
	}
	if len(res.Legs) != 2 {
		t.Fatalf("legs = %d", len(res.Legs))
	}
	for _, leg := range res.Legs {
		if leg.AddedBy != core.AddedTransfer || leg.Metadata[core.MetaTransferID] != res.Contra.ID {
			t.Errorf("leg = %+v", leg)
		}
		if leg.Description != core.TransferLegDescription {
			t.Errorf("leg description = %q", leg.Description)
		}
	}
	if res.Legs[0].EntryType != core.EntryIncome || res.Legs[0].ToAccountID != f.expense.ID {
		t.Errorf("income leg = %+v", res.Legs[0])
	}
	if res.Legs[1].EntryType != core.EntryExpenses || res.Legs[1].FromAccountID != f.income.ID {
		t.Errorf("expense leg = %+v", res.Legs[1])
	}

	all, _ := f.store.ListTransactions(ctx, "u1", store.TransactionFilter{})
	if len(all) != 3 {
		t.Errorf("stored rows = %d, want 3", len(all))
	}
}

func TestCreateTransfer_WithoutLegs(t *testing.T) {
	f := newLedger(t)
	svc := NewTransactionService(f.store, WithTransferLegs(false))

	res, err := svc.CreateTransfer(context.Background(), "u1", TransferInput{Amount: "5", FromAccountID: f.income.ID, ToAccountID: f.expense.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Legs) != 0 {
		t.Errorf("legs = %+v", res.Legs)
	}
	all, _ := f.store.ListTransactions(context.Background(), "u1", store.TransactionFilter{})
	if len(all) != 1 || all[0].EntryType != core.EntryContra {
		t.Errorf("stored = %+v", all)
	}
}

func TestCreateTransfer_Rejects(t *testing.T) {
	f := newLedger(t)
	svc := NewTransactionService(f.store)

	tests := []struct {
		name    string
		in      TransferInput
		wantErr error
	}{
		{"same account", TransferInput{Amount: "5", FromAccountID: f.income.ID, ToAccountID: f.income.ID}, core.ErrValidation},
		{"missing destination", TransferInput{Amount: "5", FromAccountID: f.income.ID}, core.ErrValidation},
		{"negative amount", TransferInput{Amount: "-5", FromAccountID: f.income.ID, ToAccountID: f.expense.ID}, core.ErrValidation},
		{"unknown account", TransferInput{Amount: "5", FromAccountID: f.income.ID, ToAccountID: "ghost"}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateTransfer(context.Background(), "u1", tt.in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// failAfter lets the first n transaction writes through.
type failAfter struct {
	*memory.Store
	n int
}

func (s *failAfter) CreateTransaction(ctx context.Context, owner string, t core.Transaction) (core.Transaction, error) {
	if s.n == 0 {
		return core.Transaction{}, core.Backend("insert transaction", errors.New("disk full"))
	}
	s.n--
	return s.Store.CreateTransaction(ctx, owner, t)
}

func TestCreateTransfer_LegFailureKeepsWrittenRows(t *testing.T) {
	f := newLedger(t)
	s := &failAfter{Store: f.store, n: 2}
	svc := NewTransactionService(s)

	res, err := svc.CreateTransfer(context.Background(), "u1", TransferInput{Amount: "5", FromAccountID: f.income.ID, ToAccountID: f.expense.ID})
	if !errors.Is(err, core.ErrPartialFailure) || !errors.Is(err, core.ErrBackend) {
		t.Fatalf("err = %v, want a partial failure keeping the backend cause", err)
	}
	if res.Contra.ID == "" || len(res.Legs) != 1 {
		t.Errorf("result = %+v", res)
	}
	all, _ := f.store.ListTransactions(context.Background(), "u1", store.TransactionFilter{})
	if len(all) != 2 {
		t.Errorf("stored rows = %d, want 2", len(all))
	}
}
