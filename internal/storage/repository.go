// Package storage is the SQLite backend.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database handle, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- accounts ---

const accountColumns = `id, owner_id, name, type, currency, opening_balance, balance, active, allow_delete, created_at, updated_at`

func (r *SQLiteRepository) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, core.Backend("list accounts", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, core.Backend("scan account", err)
		}
		out = append(out, a)
	}
	return out, core.Backend("list accounts", rows.Err())
}

func (r *SQLiteRepository) FindAccount(ctx context.Context, owner, id string) (*core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? AND id = ?`, owner, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Backend("find account", err)
	}
	return &a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, owner string, a core.Account) (core.Account, error) {
	a.OwnerID = owner
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.now()
	a.UpdatedAt = a.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, string(a.Type), a.Currency, a.OpeningBalance.String(), a.Balance.String(),
		a.Active, a.AllowDelete, a.CreatedAt.Format(timeLayout), a.UpdatedAt.Format(timeLayout))
	if err != nil {
		return core.Account{}, core.Backend("create account", err)
	}
	slog.DebugContext(ctx, "Account saved to SQLite", "id", a.ID, "owner_id", owner, "name", a.Name)
	return a, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, owner, id string, patch store.AccountPatch) (core.Account, error) {
	cur, err := r.FindAccount(ctx, owner, id)
	if err != nil {
		return core.Account{}, err
	}
	if cur == nil {
		return core.Account{}, core.NotFound("account", id)
	}
	a := *cur
	patch.Apply(&a)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.UpdatedAt = r.now()

	_, err = r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, currency = ?, balance = ?, active = ?, allow_delete = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		a.Name, string(a.Type), a.Currency, a.Balance.String(), a.Active, a.AllowDelete, a.UpdatedAt.Format(timeLayout),
		owner, id)
	if err != nil {
		return core.Account{}, core.Backend("update account", err)
	}
	return a, nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, owner, id string) error {
	return r.deleteRow(ctx, "accounts", "account", owner, id)
}

func scanAccount(sc scanner) (core.Account, error) {
	var (
		a                core.Account
		typ              string
		opening, balance string
		created, updated string
	)
	err := sc.Scan(&a.ID, &a.OwnerID, &a.Name, &typ, &a.Currency, &opening, &balance,
		&a.Active, &a.AllowDelete, &created, &updated)
	if err != nil {
		return a, err
	}
	a.Type = core.AccountType(typ)
	a.OpeningBalance = parseDecimal(opening)
	a.Balance = parseDecimal(balance)
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	return a, nil
}

// --- categories ---

const categoryColumns = `id, owner_id, parent_id, name, type, opening_balance, color, icon, created_at, updated_at`

func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, core.Backend("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, core.Backend("scan category", err)
		}
		out = append(out, c)
	}
	return out, core.Backend("list categories", rows.Err())
}

func (r *SQLiteRepository) FindCategory(ctx context.Context, owner, id string) (*core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? AND id = ?`, owner, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Backend("find category", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, owner string, c core.Category) (core.Category, error) {
	c.OwnerID = owner
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, nullable(c.ParentID), c.Name, string(c.Type), c.OpeningBalance.String(),
		c.Color, c.Icon, c.CreatedAt.Format(timeLayout), c.UpdatedAt.Format(timeLayout))
	if err != nil {
		return core.Category{}, core.Backend("create category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, owner, id string, patch store.CategoryPatch) (core.Category, error) {
	cur, err := r.FindCategory(ctx, owner, id)
	if err != nil {
		return core.Category{}, err
	}
	if cur == nil {
		return core.Category{}, core.NotFound("category", id)
	}
	c := *cur
	patch.Apply(&c)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.UpdatedAt = r.now()

	_, err = r.db.ExecContext(ctx,
		`UPDATE categories SET parent_id = ?, name = ?, type = ?, color = ?, icon = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		nullable(c.ParentID), c.Name, string(c.Type), c.Color, c.Icon, c.UpdatedAt.Format(timeLayout), owner, id)
	if err != nil {
		return core.Category{}, core.Backend("update category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, owner, id string) error {
	return r.deleteRow(ctx, "categories", "category", owner, id)
}

func scanCategory(sc scanner) (core.Category, error) {
	var (
		c                core.Category
		parent           sql.NullString
		typ, opening     string
		created, updated string
	)
	err := sc.Scan(&c.ID, &c.OwnerID, &parent, &c.Name, &typ, &opening, &c.Color, &c.Icon, &created, &updated)
	if err != nil {
		return c, err
	}
	c.ParentID = parent.String
	c.Type = core.CategoryType(typ)
	c.OpeningBalance = parseDecimal(opening)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

// --- shared helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) deleteRow(ctx context.Context, table, entity, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return core.Backend("delete "+entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Backend("delete "+entity, err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSON(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}
