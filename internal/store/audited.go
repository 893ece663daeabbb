package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// Audited wraps a DataStore so that every write on accounts, categories,
// transactions and preferences leaves an audit entry, and every delete an
// archived copy. The companion writes run after the primary write and their
// failures are logged, never returned.
type Audited struct {
	DataStore
	audit   AuditLog
	archive Archiver
	now     func() time.Time
}

// NewAudited decorates inner. audit and archive may be nil.
func NewAudited(inner DataStore, audit AuditLog, archive Archiver) *Audited {
	return &Audited{DataStore: inner, audit: audit, archive: archive, now: time.Now}
}

func (s *Audited) record(ctx context.Context, actor string, action core.AuditAction, id string, change core.Change) {
	if s.audit == nil {
		return
	}
	entry := core.NewAuditEntry(actor, action, id, change, s.now().UTC())
	if err := s.audit.RecordActivity(ctx, entry); err != nil {
		err = core.PartialFailure("record activity", err)
		slog.WarnContext(ctx, "Audit write failed",
			"entity", entry.Entity, "entity_id", id, "action", action, "error", err)
	}
}

func (s *Audited) keep(ctx context.Context, owner, id string, snapshot core.Change) {
	if s.archive == nil {
		return
	}
	rec := core.ArchivedRecord{
		Table:     snapshot.Entity().Table(),
		RecordID:  id,
		OwnerID:   owner,
		DeletedAt: s.now().UTC(),
		Snapshot:  snapshot,
	}
	if err := s.archive.ArchiveRecord(ctx, rec); err != nil {
		err = core.PartialFailure("archive record", err)
		slog.WarnContext(ctx, "Archive write failed", "table", rec.Table, "record_id", id, "error", err)
	}
}

func (s *Audited) CreateAccount(ctx context.Context, owner string, a core.Account) (core.Account, error) {
	created, err := s.DataStore.CreateAccount(ctx, owner, a)
	if err != nil {
		return created, err
	}
	s.record(ctx, owner, core.ActionCreate, created.ID, core.AccountChange{After: &created})
	return created, nil
}

func (s *Audited) UpdateAccount(ctx context.Context, owner, id string, patch AccountPatch) (core.Account, error) {
	before, _ := s.DataStore.FindAccount(ctx, owner, id)
	updated, err := s.DataStore.UpdateAccount(ctx, owner, id, patch)
	if err != nil {
		return updated, err
	}
	s.record(ctx, owner, core.ActionUpdate, id, core.AccountChange{Before: before, After: &updated})
	return updated, nil
}

func (s *Audited) DeleteAccount(ctx context.Context, owner, id string) error {
	before, _ := s.DataStore.FindAccount(ctx, owner, id)
	if err := s.DataStore.DeleteAccount(ctx, owner, id); err != nil {
		return err
	}
	change := core.AccountChange{Before: before}
	s.record(ctx, owner, core.ActionDelete, id, change)
	s.keep(ctx, owner, id, change)
	return nil
}

func (s *Audited) CreateCategory(ctx context.Context, owner string, c core.Category) (core.Category, error) {
	created, err := s.DataStore.CreateCategory(ctx, owner, c)
	if err != nil {
		return created, err
	}
	s.record(ctx, owner, core.ActionCreate, created.ID, core.CategoryChange{After: &created})
	return created, nil
}

func (s *Audited) UpdateCategory(ctx context.Context, owner, id string, patch CategoryPatch) (core.Category, error) {
	before, _ := s.DataStore.FindCategory(ctx, owner, id)
	updated, err := s.DataStore.UpdateCategory(ctx, owner, id, patch)
	if err != nil {
		return updated, err
	}
	s.record(ctx, owner, core.ActionUpdate, id, core.CategoryChange{Before: before, After: &updated})
	return updated, nil
}

func (s *Audited) DeleteCategory(ctx context.Context, owner, id string) error {
	before, _ := s.DataStore.FindCategory(ctx, owner, id)
	if err := s.DataStore.DeleteCategory(ctx, owner, id); err != nil {
		return err
	}
	change := core.CategoryChange{Before: before}
	s.record(ctx, owner, core.ActionDelete, id, change)
	s.keep(ctx, owner, id, change)
	return nil
}

func (s *Audited) CreateTransaction(ctx context.Context, owner string, t core.Transaction) (core.Transaction, error) {
	created, err := s.DataStore.CreateTransaction(ctx, owner, t)
	if err != nil {
		return created, err
	}
	s.record(ctx, owner, core.ActionCreate, created.ID, core.TransactionChange{After: &created})
	return created, nil
}

func (s *Audited) UpdateTransaction(ctx context.Context, owner, id string, patch TransactionPatch) (core.Transaction, error) {
	before, _ := s.DataStore.FindTransaction(ctx, owner, id)
	updated, err := s.DataStore.UpdateTransaction(ctx, owner, id, patch)
	if err != nil {
		return updated, err
	}
	s.record(ctx, owner, core.ActionUpdate, id, core.TransactionChange{Before: before, After: &updated})
	return updated, nil
}

func (s *Audited) DeleteTransaction(ctx context.Context, owner, id string) error {
	before, _ := s.DataStore.FindTransaction(ctx, owner, id)
	if err := s.DataStore.DeleteTransaction(ctx, owner, id); err != nil {
		return err
	}
	change := core.TransactionChange{Before: before}
	s.record(ctx, owner, core.ActionDelete, id, change)
	s.keep(ctx, owner, id, change)
	return nil
}

func (s *Audited) CreatePreference(ctx context.Context, owner string, p core.UserPreference) (core.UserPreference, error) {
	created, err := s.DataStore.CreatePreference(ctx, owner, p)
	if err != nil {
		return created, err
	}
	s.record(ctx, owner, core.ActionCreate, owner, core.PreferenceChange{After: &created})
	return created, nil
}

func (s *Audited) UpdatePreference(ctx context.Context, owner string, patch PreferencePatch) (core.UserPreference, error) {
	before, _ := s.DataStore.FindPreference(ctx, owner)
	updated, err := s.DataStore.UpdatePreference(ctx, owner, patch)
	if err != nil {
		return updated, err
	}
	s.record(ctx, owner, core.ActionUpdate, owner, core.PreferenceChange{Before: before, After: &updated})
	return updated, nil
}

// MultiAuditLog fans an entry out to several logs. Every log is tried; the
// joined error reports the ones that failed.
type MultiAuditLog []AuditLog

func (m MultiAuditLog) RecordActivity(ctx context.Context, e core.AuditEntry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.RecordActivity(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
