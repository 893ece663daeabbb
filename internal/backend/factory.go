package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/mongostore"
	"fintrack/internal/storage"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

const cacheSweepInterval = 10 * time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	caches *cache.Manager
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, caches: cache.NewManager()}
}

// CreateBackend opens the configured database, connects the optional AMQP
// activity feed and assembles the decorated store.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		raw     store.Backend
		ping    PingFunc
		closers []CleanupFunc
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		raw, ping = repo, repo.Ping
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	case MongoBackend:
		client, err := mongostore.Connect(ctx, config.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Mongo: %w", err)
		}
		raw = mongostore.NewStore(mongostore.NewProvider(client.Database(config.MongoDatabase)))
		ping = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		closers = append(closers, func() error { return client.Disconnect(context.Background()) })
		f.logger.Info("Initialized Mongo backend", "database", config.MongoDatabase)

	case MemoryBackend:
		raw = memory.New()
		ping = func(context.Context) error { return nil }
		f.logger.Info("Initialized memory backend")

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	audit := store.MultiAuditLog{raw}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without activity feed", "error", err)
		} else {
			audit = append(audit, client)
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	currencies := store.NewCachedCurrencies(raw, config.CurrencyCacheTTL)
	f.caches.Register(currencies.Cache())
	f.caches.StartCleanup(cacheSweepInterval)

	return &BackendResult{
		Store:         store.NewAudited(withCurrencies{DataStore: raw, currencies: currencies}, audit, raw),
		Notifications: raw,
		Raw:           raw,
		Ping:          ping,
		Cleanup:       f.cleanup(closers),
	}, nil
}

func (f *DefaultFactory) cleanup(closers []CleanupFunc) CleanupFunc {
	return func() error {
		f.caches.Stop()
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("close backend: %v", errs)
		}
		return nil
	}
}

// withCurrencies routes ListCurrencies through the cache.
type withCurrencies struct {
	store.DataStore
	currencies *store.CachedCurrencies
}

func (s withCurrencies) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	return s.currencies.ListCurrencies(ctx)
}
