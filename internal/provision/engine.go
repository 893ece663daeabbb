// Package provision makes sure an authenticated user has a preference row,
// the default accounts and categories, and default-account pointers that
// resolve.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Store is the slice of the data store provisioning touches.
type Store interface {
	store.AccountStore
	store.CategoryStore
	store.PreferenceStore
}

// Stats describes the writes a run performed.
type Stats struct {
	Migrated          bool `json:"migrated"`
	AccountsCreated   int  `json:"accounts_created"`
	CategoriesCreated int  `json:"categories_created"`
	CategoryFailures  int  `json:"category_failures"`
	PointersHealed    int  `json:"pointers_healed"`
}

// Writes returns the number of rows created or updated.
func (s Stats) Writes() int {
	n := s.AccountsCreated + s.CategoriesCreated + s.PointersHealed
	if s.Migrated {
		n++
	}
	return n
}

type Result struct {
	Preference core.UserPreference `json:"preference"`
	Accounts   []core.Account      `json:"accounts"`
	Categories []core.Category     `json:"categories"`
	Stats      Stats               `json:"stats"`
}

type Engine struct {
	store    Store
	defaults Defaults
	locker   Locker
}

type Option func(*Engine)

// WithLocker serializes runs per user through l.
func WithLocker(l Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

func NewEngine(s Store, defaults Defaults, opts ...Option) (*Engine, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{store: s, defaults: defaults, locker: NopLocker{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Defaults returns the starter data the engine provisions.
func (e *Engine) Defaults() Defaults {
	return e.defaults
}

// Run executes the login check for userID. A missing preference row is a
// NotFound error; no rows are written in that case.
func (e *Engine) Run(ctx context.Context, userID string) (Result, error) {
	if strings.TrimSpace(userID) == "" {
		return Result{}, core.Validation("user_id", core.ErrEmptyOwner.Error())
	}

	release, err := e.locker.Lock(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Provisioning without lock", "user_id", userID, "error", err)
	} else {
		defer release(context.WithoutCancel(ctx))
	}

	pref, err := e.store.FindPreference(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if pref == nil {
		return Result{}, core.NotFound("user_preference", userID)
	}

	var stats Stats
	if pref.MigrationCompleted {
		err = e.heal(ctx, *pref, &stats)
	} else {
		err = e.migrate(ctx, *pref, &stats)
	}
	if err != nil {
		return Result{}, err
	}

	res, err := e.fetch(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	res.Stats = stats
	if stats.Writes() > 0 {
		slog.InfoContext(ctx, "Provisioning applied changes",
			"user_id", userID,
			"defaults", e.defaults.Version,
			"migrated", stats.Migrated,
			"accounts_created", stats.AccountsCreated,
			"categories_created", stats.CategoriesCreated,
			"category_failures", stats.CategoryFailures,
			"pointers_healed", stats.PointersHealed)
	}
	return res, nil
}

func (e *Engine) migrate(ctx context.Context, pref core.UserPreference, stats *Stats) error {
	owner := pref.OwnerID
	existing, err := e.store.ListAccounts(ctx, owner)
	if err != nil {
		return err
	}

	cur := pref.Currency
	if cur == "" {
		cur = e.defaults.Currency
	}

	ids := map[Role]string{}
	for _, tmpl := range e.defaults.Accounts {
		if a, ok := activeByName(existing, tmpl.Name, ""); ok {
			ids[tmpl.Role] = a.ID
			continue
		}
		a, err := e.createAccount(ctx, owner, tmpl, cur)
		if err != nil {
			return err
		}
		existing = append(existing, a)
		ids[tmpl.Role] = a.ID
		stats.AccountsCreated++
	}

	cats, err := e.store.ListCategories(ctx, owner)
	if err != nil {
		return err
	}
	for _, tmpl := range e.defaults.Categories {
		if hasCategory(cats, tmpl) {
			continue
		}
		_, err := e.store.CreateCategory(ctx, owner, core.Category{
			Name:           tmpl.Name,
			Type:           tmpl.Type,
			Icon:           tmpl.Icon,
			Color:          tmpl.Color,
			OpeningBalance: decimal.Zero,
		})
		if err != nil {
			stats.CategoryFailures++
			slog.WarnContext(ctx, "Skipping default category", "user_id", owner, "category", tmpl.Name, "error", err)
			continue
		}
		stats.CategoriesCreated++
	}

	patch := store.PreferencePatch{
		DefaultIncomeAccountID:  store.Ptr(ids[RoleIncome]),
		DefaultExpenseAccountID: store.Ptr(ids[RoleExpense]),
		MigrationCompleted:      store.Ptr(true),
	}
	if pref.Currency == "" {
		patch.Currency = store.Ptr(cur)
	}
	if _, err := e.store.UpdatePreference(ctx, owner, patch); err != nil {
		return fmt.Errorf("complete migration: %w", err)
	}
	stats.Migrated = true
	return nil
}

func (e *Engine) heal(ctx context.Context, pref core.UserPreference, stats *Stats) error {
	owner := pref.OwnerID
	pointers := []struct {
		role Role
		id   string
		set  func(*store.PreferencePatch, string)
	}{
		{RoleIncome, pref.DefaultIncomeAccountID, func(p *store.PreferencePatch, id string) { p.DefaultIncomeAccountID = &id }},
		{RoleExpense, pref.DefaultExpenseAccountID, func(p *store.PreferencePatch, id string) { p.DefaultExpenseAccountID = &id }},
	}

	var accounts []core.Account
	listed := false
	for _, ptr := range pointers {
		if ptr.id == "" {
			continue
		}
		acc, err := e.store.FindAccount(ctx, owner, ptr.id)
		if err != nil {
			return err
		}
		if acc != nil {
			continue
		}

		tmpl, ok := e.defaults.Account(ptr.role)
		if !ok {
			return fmt.Errorf("no default account for role %s", ptr.role)
		}
		if !listed {
			if accounts, err = e.store.ListAccounts(ctx, owner); err != nil {
				return err
			}
			listed = true
		}
		replacement, ok := activeByName(accounts, tmpl.Name, ptr.id)
		if !ok {
			cur := pref.Currency
			if cur == "" {
				cur = e.defaults.Currency
			}
			if replacement, err = e.createAccount(ctx, owner, tmpl, cur); err != nil {
				return err
			}
			accounts = append(accounts, replacement)
			stats.AccountsCreated++
		}

		var patch store.PreferencePatch
		ptr.set(&patch, replacement.ID)
		if _, err := e.store.UpdatePreference(ctx, owner, patch); err != nil {
			return fmt.Errorf("repoint %s account: %w", strings.ToLower(string(ptr.role)), err)
		}
		stats.PointersHealed++
		slog.InfoContext(ctx, "Default account pointer healed",
			"user_id", owner, "role", ptr.role, "stale_id", ptr.id, "account_id", replacement.ID)
	}
	return nil
}

func (e *Engine) createAccount(ctx context.Context, owner string, tmpl AccountTemplate, cur string) (core.Account, error) {
	a, err := e.store.CreateAccount(ctx, owner, core.Account{
		Name:           tmpl.Name,
		Type:           tmpl.Type,
		Currency:       cur,
		OpeningBalance: decimal.Zero,
		Balance:        decimal.Zero,
		Active:         true,
		AllowDelete:    tmpl.AllowDelete,
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create default account %q: %w", tmpl.Name, err)
	}
	return a, nil
}

func (e *Engine) fetch(ctx context.Context, owner string) (Result, error) {
	var (
		res  Result
		pref *core.UserPreference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pref, err = e.store.FindPreference(gctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		res.Accounts, err = e.store.ListAccounts(gctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		res.Categories, err = e.store.ListCategories(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if pref == nil {
		return Result{}, core.NotFound("user_preference", owner)
	}
	res.Preference = *pref
	return res, nil
}

// activeByName finds an active account with exactly name, skipping skipID.
func activeByName(accounts []core.Account, name, skipID string) (core.Account, bool) {
	for _, a := range accounts {
		if a.Active && a.Name == name && a.ID != skipID {
			return a, true
		}
	}
	return core.Account{}, false
}

func hasCategory(cats []core.Category, tmpl CategoryTemplate) bool {
	for _, c := range cats {
		if c.Type == tmpl.Type && strings.EqualFold(c.Name, tmpl.Name) {
			return true
		}
	}
	return false
}

// IsNoPreference reports whether err means the user has no preference row yet.
func IsNoPreference(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
