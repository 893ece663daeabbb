package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetSummary  = "Summary"
	SheetSpending = "Spending"
	SheetIncome   = "Income"
	SheetRecent   = "Recent"
)

// XLSXContentType is the MIME type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX renders s as a workbook with one sheet per section.
func WriteXLSX(w io.Writer, s Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSpending, SheetIncome, SheetRecent} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Period", s.PeriodLabel},
		{"Income", s.IncomeTotal.InexactFloat64()},
		{"Expenses", s.ExpenseTotal.InexactFloat64()},
		{"Balance", s.TotalBalance.InexactFloat64()},
		{},
		{"Account", "Balance"},
	}
	for _, b := range s.AccountBalances {
		summary = append(summary, []any{b.Account.Name, b.Balance.InexactFloat64()})
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	for sheet, rows := range map[string][]CategorySummary{SheetSpending: s.CategorySpending, SheetIncome: s.CategoryIncome} {
		out := [][]any{{"Category", "Total", "Transactions", "Share %"}}
		for _, r := range rows {
			out = append(out, []any{r.Category.Name, r.Total.InexactFloat64(), r.TransactionCount, r.PercentageShare})
		}
		if err := writeRows(f, sheet, out); err != nil {
			return err
		}
	}

	recent := [][]any{{"Date", "Description", "Type", "Amount"}}
	for _, t := range s.RecentTransactions {
		recent = append(recent, []any{t.Date.String(), t.Description, string(t.EntryType), t.Amount.InexactFloat64()})
	}
	if err := writeRows(f, SheetRecent, recent); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
