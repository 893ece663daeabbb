package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestExpandTransfer(t *testing.T) {
	contra := Transaction{
		ID:            "t1",
		OwnerID:       "u1",
		FromAccountID: "bank",
		ToAccountID:   "cash",
		Amount:        decimal.NewFromInt(50),
		Date:          NewDate(2025, 5, 1),
		EntryType:     EntryContra,
		AddedBy:       AddedManual,
		Status:        StatusCompleted,
	}

	rows, err := ExpandTransfer(contra)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].EntryType != EntryContra || IsTransferLeg(rows[0]) {
		t.Fatalf("first row must be the CONTRA itself")
	}

	income, expense := rows[1], rows[2]
	if income.EntryType != EntryIncome || income.ToAccountID != "cash" || income.FromAccountID != "" {
		t.Fatalf("unexpected income leg %+v", income)
	}
	if expense.EntryType != EntryExpenses || expense.FromAccountID != "bank" || expense.ToAccountID != "" {
		t.Fatalf("unexpected expense leg %+v", expense)
	}
	for _, leg := range rows[1:] {
		if !IsTransferLeg(leg) || leg.Description != TransferLegDescription {
			t.Fatalf("leg not tagged as transfer: %+v", leg)
		}
		if leg.Metadata[MetaTransferID] != "t1" || !leg.Amount.Equal(contra.Amount) || !leg.Date.Equal(contra.Date.Time) {
			t.Fatalf("leg does not mirror the CONTRA: %+v", leg)
		}
	}
}

func TestExpandTransferRejectsMalformed(t *testing.T) {
	base := Transaction{OwnerID: "u1", FromAccountID: "a", ToAccountID: "b", Amount: decimal.NewFromInt(1), EntryType: EntryContra}

	notContra := base
	notContra.EntryType = EntryExpenses
	sameAccount := base
	sameAccount.ToAccountID = "a"
	noSource := base
	noSource.FromAccountID = ""
	zero := base
	zero.Amount = decimal.Zero

	for i, tx := range []Transaction{notContra, sameAccount, noSource, zero} {
		if _, err := ExpandTransfer(tx); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}
