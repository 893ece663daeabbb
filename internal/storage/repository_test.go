package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Accounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a, err := repo.CreateAccount(ctx, "u1", core.Account{
		Name: "Income", Type: core.AccountBank, Currency: "EUR",
		OpeningBalance: decimal.RequireFromString("10.50"), Active: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	got, err := repo.FindAccount(ctx, "u1", a.ID)
	if err != nil || got == nil {
		t.Fatalf("FindAccount = %v, %v", got, err)
	}
	if !got.OpeningBalance.Equal(decimal.RequireFromString("10.5")) || !got.Active || got.AllowDelete {
		t.Errorf("round trip = %+v", got)
	}

	if missing, err := repo.FindAccount(ctx, "u2", a.ID); err != nil || missing != nil {
		t.Errorf("other owner FindAccount = %v, %v", missing, err)
	}

	upd, err := repo.UpdateAccount(ctx, "u1", a.ID, store.AccountPatch{Name: store.Ptr("Salary")})
	if err != nil || upd.Name != "Salary" {
		t.Fatalf("UpdateAccount = %+v, %v", upd, err)
	}
	if _, err := repo.UpdateAccount(ctx, "u1", "nope", store.AccountPatch{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}

	list, err := repo.ListAccounts(ctx, "u1")
	if err != nil || len(list) != 1 || list[0].Name != "Salary" {
		t.Fatalf("ListAccounts = %+v, %v", list, err)
	}

	if err := repo.DeleteAccount(ctx, "u1", a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if err := repo.DeleteAccount(ctx, "u1", a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSQLiteRepository_Transactions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	create := func(desc string, date core.Date, entry core.EntryType, cat string) core.Transaction {
		t.Helper()
		tx, err := repo.CreateTransaction(ctx, "u1", core.Transaction{
			CategoryID:  cat,
			Amount:      decimal.RequireFromString("12.34"),
			Description: desc,
			Date:        date,
			EntryType:   entry,
			Attachments: []string{"https://files.example/r.png"},
			Metadata:    map[string]string{"source": "test"},
		})
		if err != nil {
			t.Fatalf("CreateTransaction(%s): %v", desc, err)
		}
		return tx
	}
	create("jan", core.NewDate(2026, 1, 10), core.EntryExpenses, "food")
	create("undated", core.Date{}, core.EntryExpenses, "")
	feb := create("feb", core.NewDate(2026, 2, 10), core.EntryIncome, "")

	all, err := repo.ListTransactions(ctx, "u1", store.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 || all[0].Description != "feb" || all[2].Description != "undated" {
		t.Fatalf("order = %+v", all)
	}
	if all[2].Date.IsKnown() {
		t.Error("undated transaction came back with a date")
	}
	if all[0].Metadata["source"] != "test" || len(all[0].Attachments) != 1 {
		t.Errorf("json columns = %+v / %+v", all[0].Metadata, all[0].Attachments)
	}
	if all[0].Status != core.StatusCompleted || all[0].AddedBy != core.AddedManual {
		t.Errorf("defaults = %s / %s", all[0].Status, all[0].AddedBy)
	}

	ranged, err := repo.ListTransactions(ctx, "u1", store.TransactionFilter{
		From: core.NewDate(2026, 1, 1), To: core.NewDate(2026, 1, 31),
	})
	if err != nil || len(ranged) != 1 || ranged[0].Description != "jan" {
		t.Errorf("date range = %+v, %v", ranged, err)
	}

	paged, err := repo.ListTransactions(ctx, "u1", store.TransactionFilter{Offset: 1})
	if err != nil || len(paged) != 2 {
		t.Errorf("offset only = %d rows, %v", len(paged), err)
	}

	byCat, _ := repo.ListTransactions(ctx, "u1", store.TransactionFilter{CategoryID: "food"})
	if len(byCat) != 1 {
		t.Errorf("category filter = %d rows", len(byCat))
	}

	upd, err := repo.UpdateTransaction(ctx, "u1", feb.ID, store.TransactionPatch{Status: store.Ptr(core.StatusCancelled)})
	if err != nil || upd.Status != core.StatusCancelled {
		t.Fatalf("UpdateTransaction = %+v, %v", upd, err)
	}
}

func TestSQLiteRepository_PreferencesAndReference(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if p, err := repo.FindPreference(ctx, "u1"); err != nil || p != nil {
		t.Fatalf("FindPreference before create = %v, %v", p, err)
	}
	if _, err := repo.CreatePreference(ctx, "u1", core.UserPreference{Currency: "EUR"}); err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	p, err := repo.UpdatePreference(ctx, "u1", store.PreferencePatch{
		DefaultIncomeAccountID: store.Ptr("a1"),
		MigrationCompleted:     store.Ptr(true),
	})
	if err != nil || p.DefaultIncomeAccountID != "a1" || !p.MigrationCompleted || p.Currency != "EUR" {
		t.Fatalf("UpdatePreference = %+v, %v", p, err)
	}

	cur, err := repo.ListCurrencies(ctx)
	if err != nil || len(cur) == 0 {
		t.Fatalf("ListCurrencies = %v, %v", cur, err)
	}
	for _, c := range cur {
		if c.Code == "JPY" && c.Precision != 0 {
			t.Errorf("JPY precision = %d", c.Precision)
		}
	}

	for _, title := range []string{"a", "b"} {
		if _, err := repo.CreateNotification(ctx, "u1", core.Notification{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	notes, err := repo.ListNotifications(ctx, "u1", 0)
	if err != nil || len(notes) != 2 {
		t.Fatalf("ListNotifications = %v, %v", notes, err)
	}
}

func TestSQLiteRepository_AuditAndArchive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	audited := store.NewAudited(repo, repo, repo)

	c, err := audited.CreateCategory(ctx, "u1", core.Category{Name: "Food", Type: core.CategoryExpense})
	if err != nil {
		t.Fatal(err)
	}
	if err := audited.DeleteCategory(ctx, "u1", c.ID); err != nil {
		t.Fatal(err)
	}

	activity, err := repo.ListActivity(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(activity) != 2 || activity[0].Action != core.ActionDelete {
		t.Fatalf("activity = %+v", activity)
	}
	created, ok := activity[1].Change.(core.CategoryChange)
	if !ok || created.After == nil || created.After.Name != "Food" {
		t.Errorf("create change = %#v", activity[1].Change)
	}

	archived, err := repo.ListArchived(ctx, "u1", "categories")
	if err != nil || len(archived) != 1 {
		t.Fatalf("ListArchived = %+v, %v", archived, err)
	}
	snap, ok := archived[0].Snapshot.(core.CategoryChange)
	if !ok || snap.Before == nil || snap.Before.ID != c.ID {
		t.Errorf("snapshot = %#v", archived[0].Snapshot)
	}
}
