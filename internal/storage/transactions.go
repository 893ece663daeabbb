package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const transactionColumns = `id, owner_id, from_account_id, to_account_id, category_id, amount, description,
	attachments, transaction_date, entry_type, added_by, status, metadata, created_at, updated_at`

// ListTransactions returns matches newest date first; rows with no date
// come last.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string, f store.TransactionFilter) ([]core.Transaction, error) {
	where, args := transactionWhere(owner, f)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY transaction_date IS NULL, transaction_date DESC, created_at DESC, rowid DESC`
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.Backend("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, core.Backend("scan transaction", err)
		}
		out = append(out, t)
	}
	return out, core.Backend("list transactions", rows.Err())
}

func transactionWhere(owner string, f store.TransactionFilter) (string, []any) {
	clauses := []string{"owner_id = ?"}
	args := []any{owner}
	add := func(clause string, v any) {
		clauses = append(clauses, clause)
		args = append(args, v)
	}
	if f.FromAccountID != "" {
		add("from_account_id = ?", f.FromAccountID)
	}
	if f.ToAccountID != "" {
		add("to_account_id = ?", f.ToAccountID)
	}
	if f.CategoryID != "" {
		add("category_id = ?", f.CategoryID)
	}
	if f.EntryType != "" {
		add("entry_type = ?", string(f.EntryType))
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.AddedBy != "" {
		add("added_by = ?", string(f.AddedBy))
	}
	if f.From.IsKnown() {
		add("transaction_date >= ?", f.From.String())
	}
	if f.To.IsKnown() {
		add("transaction_date <= ?", f.To.String())
	}
	return strings.Join(clauses, " AND "), args
}

func (r *SQLiteRepository) FindTransaction(ctx context.Context, owner, id string) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = ? AND id = ?`, owner, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Backend("find transaction", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, owner string, t core.Transaction) (core.Transaction, error) {
	t.OwnerID = owner
	if t.Status == "" {
		t.Status = core.StatusCompleted
	}
	if t.AddedBy == "" {
		t.AddedBy = core.AddedManual
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = r.now()
	t.UpdatedAt = t.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, nullable(t.FromAccountID), nullable(t.ToAccountID), nullable(t.CategoryID),
		t.Amount.String(), t.Description, encodeJSON(t.Attachments, "[]"), nullable(t.Date.String()),
		string(t.EntryType), string(t.AddedBy), string(t.Status), encodeJSON(t.Metadata, "{}"),
		t.CreatedAt.Format(timeLayout), t.UpdatedAt.Format(timeLayout))
	if err != nil {
		return core.Transaction{}, core.Backend("create transaction", err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, owner, id string, patch store.TransactionPatch) (core.Transaction, error) {
	cur, err := r.FindTransaction(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if cur == nil {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	t := *cur
	patch.Apply(&t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.UpdatedAt = r.now()

	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions SET from_account_id = ?, to_account_id = ?, category_id = ?, amount = ?,
		 description = ?, transaction_date = ?, entry_type = ?, status = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		nullable(t.FromAccountID), nullable(t.ToAccountID), nullable(t.CategoryID), t.Amount.String(),
		t.Description, nullable(t.Date.String()), string(t.EntryType), string(t.Status),
		t.UpdatedAt.Format(timeLayout), owner, id)
	if err != nil {
		return core.Transaction{}, core.Backend("update transaction", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, owner, id string) error {
	return r.deleteRow(ctx, "transactions", "transaction", owner, id)
}

func scanTransaction(sc scanner) (core.Transaction, error) {
	var (
		t                 core.Transaction
		from, to, cat     sql.NullString
		date              sql.NullString
		amount            string
		attachments, meta string
		entry, added, st  string
		created, updated  string
	)
	err := sc.Scan(&t.ID, &t.OwnerID, &from, &to, &cat, &amount, &t.Description,
		&attachments, &date, &entry, &added, &st, &meta, &created, &updated)
	if err != nil {
		return t, err
	}
	t.FromAccountID = from.String
	t.ToAccountID = to.String
	t.CategoryID = cat.String
	t.Amount = parseDecimal(amount)
	t.Date = core.ParseDateLenient(date.String)
	t.EntryType = core.EntryType(entry)
	t.AddedBy = core.Provenance(added)
	t.Status = core.TransactionStatus(st)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	// Malformed JSON columns degrade to empty values.
	_ = json.Unmarshal([]byte(attachments), &t.Attachments)
	_ = json.Unmarshal([]byte(meta), &t.Metadata)
	if len(t.Attachments) == 0 {
		t.Attachments = nil
	}
	if len(t.Metadata) == 0 {
		t.Metadata = nil
	}
	return t, nil
}
