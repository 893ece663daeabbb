package core

import "strings"

// TransferLegDescription is the fixed description of synthetic transfer legs.
const TransferLegDescription = "Transfer between accounts"

// MetaTransferID links a synthetic leg to its CONTRA row.
const MetaTransferID = "transfer_id"

// ExpandTransfer turns a CONTRA transaction into the rows a transfer
// persists: the CONTRA itself, an INCOME leg crediting the destination and an
// EXPENSES leg debiting the source. Legs are tagged with TRANSFER provenance.
// The CONTRA must already carry its id when legs should reference it.
func ExpandTransfer(t Transaction) ([]Transaction, error) {
	if t.EntryType != EntryContra {
		return nil, Validation("entry_type", "transfer must be CONTRA")
	}
	if strings.TrimSpace(t.FromAccountID) == "" {
		return nil, Validation("from_account_id", "required for transfer")
	}
	if strings.TrimSpace(t.ToAccountID) == "" {
		return nil, Validation("to_account_id", "required for transfer")
	}
	if t.FromAccountID == t.ToAccountID {
		return nil, Validation("to_account_id", "must differ from source account")
	}
	if !t.Amount.IsPositive() {
		return nil, Validation("amount", ErrInvalidAmount.Error())
	}

	leg := func(entry EntryType, from, to string) Transaction {
		meta := map[string]string{}
		if t.ID != "" {
			meta[MetaTransferID] = t.ID
		}
		return Transaction{
			OwnerID:       t.OwnerID,
			FromAccountID: from,
			ToAccountID:   to,
			Amount:        t.Amount,
			Description:   TransferLegDescription,
			Date:          t.Date,
			EntryType:     entry,
			AddedBy:       AddedTransfer,
			Status:        t.Status,
			Metadata:      meta,
		}
	}

	return []Transaction{
		t,
		leg(EntryIncome, "", t.ToAccountID),
		leg(EntryExpenses, t.FromAccountID, ""),
	}, nil
}

// IsTransferLeg reports whether t was synthesized by ExpandTransfer.
func IsTransferLeg(t Transaction) bool {
	return t.AddedBy == AddedTransfer && t.EntryType != EntryContra
}
