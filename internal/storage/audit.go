package storage

import (
	"context"

	"fintrack/internal/core"
)

// RecordActivity appends an entry to activity_log.
func (r *SQLiteRepository) RecordActivity(ctx context.Context, e core.AuditEntry) error {
	change, err := core.EncodeChange(e.Change)
	if err != nil {
		return core.Backend("encode activity", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO activity_log (actor_id, action, entity, entity_id, message, change, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ActorID, string(e.Action), string(e.Entity), e.EntityID, e.Message, string(change),
		e.At.UTC().Format(timeLayout))
	return core.Backend("record activity", err)
}

// ArchiveRecord copies a deleted row into deleted_records.
func (r *SQLiteRepository) ArchiveRecord(ctx context.Context, rec core.ArchivedRecord) error {
	snapshot, err := core.EncodeChange(rec.Snapshot)
	if err != nil {
		return core.Backend("encode snapshot", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO deleted_records (table_name, record_id, owner_id, snapshot, deleted_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Table, rec.RecordID, rec.OwnerID, string(snapshot), rec.DeletedAt.UTC().Format(timeLayout))
	return core.Backend("archive record", err)
}

// ListActivity returns an actor's audit entries, newest first.
func (r *SQLiteRepository) ListActivity(ctx context.Context, actor string, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT actor_id, action, entity, entity_id, message, change, created_at FROM activity_log
		 WHERE actor_id = ? ORDER BY id DESC LIMIT ?`, actor, limit)
	if err != nil {
		return nil, core.Backend("list activity", err)
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		var (
			e                      core.AuditEntry
			action, entity, change string
			at                     string
		)
		if err := rows.Scan(&e.ActorID, &action, &entity, &e.EntityID, &e.Message, &change, &at); err != nil {
			return nil, core.Backend("scan activity", err)
		}
		e.Action = core.AuditAction(action)
		e.Entity = core.EntityType(entity)
		e.At = parseTime(at)
		if e.Change, err = core.DecodeChange(e.Entity, []byte(change)); err != nil {
			return nil, core.Backend("decode activity", err)
		}
		out = append(out, e)
	}
	return out, core.Backend("list activity", rows.Err())
}

// ListArchived returns the archived copies of one table's rows for an owner.
func (r *SQLiteRepository) ListArchived(ctx context.Context, owner, table string) ([]core.ArchivedRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_name, record_id, owner_id, snapshot, deleted_at FROM deleted_records
		 WHERE owner_id = ? AND table_name = ? ORDER BY id`, owner, table)
	if err != nil {
		return nil, core.Backend("list archived", err)
	}
	defer rows.Close()

	var out []core.ArchivedRecord
	for rows.Next() {
		var rec core.ArchivedRecord
		var snapshot, deleted string
		if err := rows.Scan(&rec.Table, &rec.RecordID, &rec.OwnerID, &snapshot, &deleted); err != nil {
			return nil, core.Backend("scan archived", err)
		}
		rec.DeletedAt = parseTime(deleted)
		if rec.Snapshot, err = core.DecodeChange(entityForTable(rec.Table), []byte(snapshot)); err != nil {
			return nil, core.Backend("decode archived", err)
		}
		out = append(out, rec)
	}
	return out, core.Backend("list archived", rows.Err())
}

func entityForTable(table string) core.EntityType {
	for _, e := range []core.EntityType{core.EntityAccount, core.EntityCategory, core.EntityTransaction, core.EntityPreference} {
		if e.Table() == table {
			return e
		}
	}
	return core.EntityType(table)
}
