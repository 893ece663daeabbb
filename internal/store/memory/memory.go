// Package memory is an in-process backend for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/store"
)

// Store keeps every record type in insertion order behind one RWMutex.
// Reads hand out copies.
type Store struct {
	mu            sync.RWMutex
	accounts      []core.Account
	categories    []core.Category
	transactions  []core.Transaction
	preferences   map[string]core.UserPreference
	notifications []core.Notification
	activity      []core.AuditEntry
	archived      []core.ArchivedRecord
	currencies    []core.Currency

	now   func() time.Time
	newID func() string
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		preferences: make(map[string]core.UserPreference),
		currencies:  currency.Default().List(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) ListAccounts(_ context.Context, owner string) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.OwnerID == owner {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) FindAccount(_ context.Context, owner, id string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.accountIndex(owner, id); i >= 0 {
		a := s.accounts[i]
		return &a, nil
	}
	return nil, nil
}

func (s *Store) CreateAccount(_ context.Context, owner string, a core.Account) (core.Account, error) {
	a.OwnerID = owner
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.newID()
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, owner, id string, patch store.AccountPatch) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(owner, id)
	if i < 0 {
		return core.Account{}, core.NotFound("account", id)
	}
	a := s.accounts[i]
	patch.Apply(&a)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.UpdatedAt = s.now()
	s.accounts[i] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(owner, id)
	if i < 0 {
		return core.NotFound("account", id)
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	return nil
}

func (s *Store) accountIndex(owner, id string) int {
	for i, a := range s.accounts {
		if a.ID == id && a.OwnerID == owner {
			return i
		}
	}
	return -1
}

func (s *Store) ListCategories(_ context.Context, owner string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) FindCategory(_ context.Context, owner, id string) (*core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.categoryIndex(owner, id); i >= 0 {
		c := s.categories[i]
		return &c, nil
	}
	return nil, nil
}

func (s *Store) CreateCategory(_ context.Context, owner string, c core.Category) (core.Category, error) {
	c.OwnerID = owner
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.newID()
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, owner, id string, patch store.CategoryPatch) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(owner, id)
	if i < 0 {
		return core.Category{}, core.NotFound("category", id)
	}
	c := s.categories[i]
	patch.Apply(&c)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.UpdatedAt = s.now()
	s.categories[i] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(owner, id)
	if i < 0 {
		return core.NotFound("category", id)
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return nil
}

func (s *Store) categoryIndex(owner, id string) int {
	for i, c := range s.categories {
		if c.ID == id && c.OwnerID == owner {
			return i
		}
	}
	return -1
}

// ListTransactions returns matches newest date first; unknown dates sort
// last and ties keep the most recently inserted first.
func (s *Store) ListTransactions(_ context.Context, owner string, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	var out []core.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.OwnerID == owner && f.Match(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a.IsKnown() != b.IsKnown() {
			return a.IsKnown()
		}
		return a.After(b.Time)
	})
	return store.Paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) FindTransaction(_ context.Context, owner, id string) (*core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.transactionIndex(owner, id); i >= 0 {
		t := cloneTransaction(s.transactions[i])
		return &t, nil
	}
	return nil, nil
}

func (s *Store) CreateTransaction(_ context.Context, owner string, t core.Transaction) (core.Transaction, error) {
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.newID()
	}
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	t = cloneTransaction(t)
	s.transactions = append(s.transactions, t)
	return cloneTransaction(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, owner, id string, patch store.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(owner, id)
	if i < 0 {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	t := cloneTransaction(s.transactions[i])
	patch.Apply(&t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.UpdatedAt = s.now()
	s.transactions[i] = t
	return cloneTransaction(t), nil
}

func (s *Store) DeleteTransaction(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(owner, id)
	if i < 0 {
		return core.NotFound("transaction", id)
	}
	s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
	return nil
}

func (s *Store) transactionIndex(owner, id string) int {
	for i, t := range s.transactions {
		if t.ID == id && t.OwnerID == owner {
			return i
		}
	}
	return -1
}

func cloneTransaction(t core.Transaction) core.Transaction {
	if t.Attachments != nil {
		t.Attachments = append([]string(nil), t.Attachments...)
	}
	if t.Metadata != nil {
		m := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			m[k] = v
		}
		t.Metadata = m
	}
	return t
}

func (s *Store) FindPreference(_ context.Context, owner string) (*core.UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.preferences[owner]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *Store) CreatePreference(_ context.Context, owner string, p core.UserPreference) (core.UserPreference, error) {
	if owner == "" {
		return core.UserPreference{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.preferences[owner]; ok {
		return core.UserPreference{}, core.Validation("owner_id", "preference already exists")
	}
	p.OwnerID = owner
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.preferences[owner] = p
	return p, nil
}

func (s *Store) UpdatePreference(_ context.Context, owner string, patch store.PreferencePatch) (core.UserPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preferences[owner]
	if !ok {
		return core.UserPreference{}, core.NotFound("user_preference", owner)
	}
	patch.Apply(&p)
	p.UpdatedAt = s.now()
	s.preferences[owner] = p
	return p, nil
}

func (s *Store) ListCurrencies(context.Context) ([]core.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Currency(nil), s.currencies...), nil
}

func (s *Store) CreateNotification(_ context.Context, owner string, n core.Notification) (core.Notification, error) {
	if owner == "" {
		return core.Notification{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n.OwnerID = owner
	if n.ID == "" {
		n.ID = s.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notifications = append(s.notifications, n)
	return n, nil
}

// ListNotifications returns the newest first.
func (s *Store) ListNotifications(_ context.Context, owner string, limit int) ([]core.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].OwnerID == owner {
			out = append(out, s.notifications[i])
		}
	}
	return store.Paginate(out, 0, limit), nil
}

func (s *Store) RecordActivity(_ context.Context, e core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, e)
	return nil
}

func (s *Store) ArchiveRecord(_ context.Context, r core.ArchivedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archived = append(s.archived, r)
	return nil
}

// Activity returns the recorded audit entries in order.
func (s *Store) Activity() []core.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.AuditEntry(nil), s.activity...)
}

// Archived returns the archived records in order.
func (s *Store) Archived() []core.ArchivedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ArchivedRecord(nil), s.archived...)
}

func (s *Store) Close() error { return nil }
