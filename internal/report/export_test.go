package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

func TestWriteXLSX(t *testing.T) {
	txs := []core.Transaction{
		{Amount: dec("100"), EntryType: core.EntryIncome, CategoryID: "salary", Date: core.NewDate(2026, 2, 1), Description: "pay"},
		{Amount: dec("40"), EntryType: core.EntryExpenses, CategoryID: "food", Date: core.NewDate(2026, 2, 3), Description: "market"},
	}
	cats := []core.Category{
		{ID: "salary", Name: "Salary", Type: core.CategoryIncome},
		{ID: "food", Name: "Food", Type: core.CategoryExpense},
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, Aggregate(txs, cats, []core.Account{{ID: "a", Name: "Wallet"}})); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetSpending)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "Food" || rows[1][1] != "40" {
		t.Errorf("spending rows = %v", rows)
	}
	summary, _ := f.GetRows(SheetSummary)
	if len(summary) == 0 || summary[0][1] != "February 2026" {
		t.Errorf("summary rows = %v", summary)
	}
	recent, _ := f.GetRows(SheetRecent)
	if len(recent) != 3 || recent[1][1] != "market" {
		t.Errorf("recent rows = %v", recent)
	}
}
