package core

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"

	EntityAccount     EntityType = "account"
	EntityCategory    EntityType = "category"
	EntityTransaction EntityType = "transaction"
	EntityPreference  EntityType = "user_preference"
)

type (
	AuditAction string
	EntityType  string

	// Change is the typed before/after pair attached to an audit entry. The
	// concrete type is selected by Entity.
	Change interface {
		Entity() EntityType
	}

	AccountChange struct {
		Before *Account `json:"before,omitempty"`
		After  *Account `json:"after,omitempty"`
	}

	CategoryChange struct {
		Before *Category `json:"before,omitempty"`
		After  *Category `json:"after,omitempty"`
	}

	TransactionChange struct {
		Before *Transaction `json:"before,omitempty"`
		After  *Transaction `json:"after,omitempty"`
	}

	PreferenceChange struct {
		Before *UserPreference `json:"before,omitempty"`
		After  *UserPreference `json:"after,omitempty"`
	}

	AuditEntry struct {
		ActorID  string
		Action   AuditAction
		Entity   EntityType
		EntityID string
		Message  string
		Change   Change
		At       time.Time
	}

	// ArchivedRecord is the copy of a row kept after deletion, keyed by the
	// table it came from and its original id.
	ArchivedRecord struct {
		Table     string
		RecordID  string
		OwnerID   string
		DeletedAt time.Time
		Snapshot  Change
	}
)

func (AccountChange) Entity() EntityType     { return EntityAccount }
func (CategoryChange) Entity() EntityType    { return EntityCategory }
func (TransactionChange) Entity() EntityType { return EntityTransaction }
func (PreferenceChange) Entity() EntityType  { return EntityPreference }

// Table returns the storage table name of an entity type.
func (e EntityType) Table() string {
	switch e {
	case EntityAccount:
		return "accounts"
	case EntityCategory:
		return "categories"
	case EntityTransaction:
		return "transactions"
	case EntityPreference:
		return "user_preferences"
	}
	return string(e)
}

// EncodeChange serializes a change to JSON. A nil change encodes as null.
func EncodeChange(c Change) ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c)
}

// DecodeChange restores the concrete change type for entity.
func DecodeChange(entity EntityType, data []byte) (Change, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var (
		c   Change
		err error
	)
	switch entity {
	case EntityAccount:
		var v AccountChange
		err = json.Unmarshal(data, &v)
		c = v
	case EntityCategory:
		var v CategoryChange
		err = json.Unmarshal(data, &v)
		c = v
	case EntityTransaction:
		var v TransactionChange
		err = json.Unmarshal(data, &v)
		c = v
	case EntityPreference:
		var v PreferenceChange
		err = json.Unmarshal(data, &v)
		c = v
	default:
		return nil, fmt.Errorf("decode change: unknown entity %q", entity)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s change: %w", entity, err)
	}
	return c, nil
}

// NewAuditEntry builds an entry with a generated message.
func NewAuditEntry(actor string, action AuditAction, entityID string, change Change, at time.Time) AuditEntry {
	entity := change.Entity()
	return AuditEntry{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Message:  fmt.Sprintf("%s %s %s", actionVerb(action), entity, entityID),
		Change:   change,
		At:       at,
	}
}

func actionVerb(a AuditAction) string {
	switch a {
	case ActionCreate:
		return "created"
	case ActionUpdate:
		return "updated"
	case ActionDelete:
		return "deleted"
	}
	return string(a)
}
