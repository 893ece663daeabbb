package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const preferenceColumns = `owner_id, currency, theme, language, default_income_account_id,
	default_expense_account_id, migration_completed, created_at, updated_at`

func (r *SQLiteRepository) FindPreference(ctx context.Context, owner string) (*core.UserPreference, error) {
	var (
		p                core.UserPreference
		income, expense  sql.NullString
		created, updated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE owner_id = ?`, owner).
		Scan(&p.OwnerID, &p.Currency, &p.Theme, &p.Language, &income, &expense,
			&p.MigrationCompleted, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Backend("find preference", err)
	}
	p.DefaultIncomeAccountID = income.String
	p.DefaultExpenseAccountID = expense.String
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

func (r *SQLiteRepository) CreatePreference(ctx context.Context, owner string, p core.UserPreference) (core.UserPreference, error) {
	if owner == "" {
		return core.UserPreference{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	existing, err := r.FindPreference(ctx, owner)
	if err != nil {
		return core.UserPreference{}, err
	}
	if existing != nil {
		return core.UserPreference{}, core.Validation("owner_id", "preference already exists")
	}
	p.OwnerID = owner
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_preferences (`+preferenceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OwnerID, p.Currency, p.Theme, p.Language, nullable(p.DefaultIncomeAccountID),
		nullable(p.DefaultExpenseAccountID), p.MigrationCompleted,
		p.CreatedAt.Format(timeLayout), p.UpdatedAt.Format(timeLayout))
	if err != nil {
		return core.UserPreference{}, core.Backend("create preference", err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdatePreference(ctx context.Context, owner string, patch store.PreferencePatch) (core.UserPreference, error) {
	cur, err := r.FindPreference(ctx, owner)
	if err != nil {
		return core.UserPreference{}, err
	}
	if cur == nil {
		return core.UserPreference{}, core.NotFound("user_preference", owner)
	}
	p := *cur
	patch.Apply(&p)
	p.UpdatedAt = r.now()

	_, err = r.db.ExecContext(ctx,
		`UPDATE user_preferences SET currency = ?, theme = ?, language = ?, default_income_account_id = ?,
		 default_expense_account_id = ?, migration_completed = ?, updated_at = ? WHERE owner_id = ?`,
		p.Currency, p.Theme, p.Language, nullable(p.DefaultIncomeAccountID), nullable(p.DefaultExpenseAccountID),
		p.MigrationCompleted, p.UpdatedAt.Format(timeLayout), owner)
	if err != nil {
		return core.UserPreference{}, core.Backend("update preference", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, symbol, precision FROM currencies ORDER BY code`)
	if err != nil {
		return nil, core.Backend("list currencies", err)
	}
	defer rows.Close()

	var out []core.Currency
	for rows.Next() {
		var c core.Currency
		if err := rows.Scan(&c.Code, &c.Symbol, &c.Precision); err != nil {
			return nil, core.Backend("scan currency", err)
		}
		out = append(out, c)
	}
	return out, core.Backend("list currencies", rows.Err())
}

func (r *SQLiteRepository) CreateNotification(ctx context.Context, owner string, n core.Notification) (core.Notification, error) {
	if owner == "" {
		return core.Notification{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	n.OwnerID = owner
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, owner_id, title, body, read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, n.Title, n.Body, n.Read, n.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return core.Notification{}, core.Backend("create notification", err)
	}
	return n, nil
}

// ListNotifications returns the newest first; limit <= 0 means all.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, owner string, limit int) ([]core.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, title, body, read, created_at FROM notifications
		 WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, owner, limit)
	if err != nil {
		return nil, core.Backend("list notifications", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n       core.Notification
			created string
		)
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &n.Read, &created); err != nil {
			return nil, core.Backend("scan notification", err)
		}
		n.CreatedAt = parseTime(created)
		out = append(out, n)
	}
	return out, core.Backend("list notifications", rows.Err())
}
