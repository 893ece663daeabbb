// Package store defines the data access ports the rest of the application
// depends on, plus decorators shared by every backend.
package store

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters. Find* methods return (nil, nil) when the
// record does not exist; a non-nil error always means the backend failed.
type (
	AccountStore interface {
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		FindAccount(ctx context.Context, ownerID, id string) (*core.Account, error)
		CreateAccount(ctx context.Context, ownerID string, a core.Account) (core.Account, error)
		UpdateAccount(ctx context.Context, ownerID, id string, patch AccountPatch) (core.Account, error)
		DeleteAccount(ctx context.Context, ownerID, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		FindCategory(ctx context.Context, ownerID, id string) (*core.Category, error)
		CreateCategory(ctx context.Context, ownerID string, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, ownerID, id string, patch CategoryPatch) (core.Category, error)
		DeleteCategory(ctx context.Context, ownerID, id string) error
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]core.Transaction, error)
		FindTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error)
		CreateTransaction(ctx context.Context, ownerID string, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, ownerID, id string, patch TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id string) error
	}

	// PreferenceStore holds the singleton preference row of each owner.
	PreferenceStore interface {
		FindPreference(ctx context.Context, ownerID string) (*core.UserPreference, error)
		CreatePreference(ctx context.Context, ownerID string, p core.UserPreference) (core.UserPreference, error)
		UpdatePreference(ctx context.Context, ownerID string, patch PreferencePatch) (core.UserPreference, error)
	}

	CurrencyReader interface {
		ListCurrencies(ctx context.Context) ([]core.Currency, error)
	}

	NotificationStore interface {
		CreateNotification(ctx context.Context, ownerID string, n core.Notification) (core.Notification, error)
		ListNotifications(ctx context.Context, ownerID string, limit int) ([]core.Notification, error)
	}

	// AuditLog receives one entry per audited write.
	AuditLog interface {
		RecordActivity(ctx context.Context, e core.AuditEntry) error
	}

	// Archiver keeps a copy of deleted rows.
	Archiver interface {
		ArchiveRecord(ctx context.Context, r core.ArchivedRecord) error
	}

	// DataStore is the full data access surface used by services.
	DataStore interface {
		AccountStore
		CategoryStore
		TransactionStore
		PreferenceStore
		CurrencyReader
	}

	// Backend is what a storage implementation provides: the data store plus
	// the audit and notification sinks.
	Backend interface {
		DataStore
		NotificationStore
		AuditLog
		Archiver
	}
)
