package store

import "fintrack/internal/core"

// TransactionFilter narrows ListTransactions. Zero fields are ignored; From
// and To are inclusive.
type TransactionFilter struct {
	FromAccountID string
	ToAccountID   string
	CategoryID    string
	EntryType     core.EntryType
	Status        core.TransactionStatus
	AddedBy       core.Provenance
	From          core.Date
	To            core.Date
	Limit         int
	Offset        int
}

// Match reports whether t passes every non-zero criterion (pagination
// excluded). A transaction with an unknown date never matches a date range.
func (f TransactionFilter) Match(t core.Transaction) bool {
	if f.FromAccountID != "" && t.FromAccountID != f.FromAccountID {
		return false
	}
	if f.ToAccountID != "" && t.ToAccountID != f.ToAccountID {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.EntryType != "" && t.EntryType != f.EntryType {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.AddedBy != "" && t.AddedBy != f.AddedBy {
		return false
	}
	if f.From.IsKnown() && (!t.Date.IsKnown() || t.Date.Before(f.From.Time)) {
		return false
	}
	if f.To.IsKnown() && (!t.Date.IsKnown() || t.Date.After(f.To.Time)) {
		return false
	}
	return true
}

// Paginate applies Offset and Limit to an already filtered slice.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
