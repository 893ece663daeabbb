package backend

import (
	"context"
	"time"

	"fintrack/internal/store"
)

type CleanupFunc func() error

// PingFunc reports whether the underlying database is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult is a ready-to-use data layer. Store is audited and serves
// currencies from cache; Raw is the undecorated backend for components that
// must not generate audit entries (notifications, readiness).
type BackendResult struct {
	Store         store.DataStore
	Notifications store.NotificationStore
	Raw           store.Backend
	Ping          PingFunc
	Cleanup       CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Mongo specific
	MongoURI      string
	MongoDatabase string

	// Activity feed, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	CurrencyCacheTTL time.Duration
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MongoBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
