// Package cli holds the start-up steps shared by the fintrack commands.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/provision"
)

// SetupLogger installs a text logger at the given level as the slog default.
func SetupLogger(level string) *slog.Logger {
	logger := applog.New(applog.Config{Level: applog.ParseLevel(level), Component: applog.ComponentApp})
	applog.SetDefault(logger)
	return logger.Logger
}

// SetupStderrLogger is SetupLogger for commands whose stdout is data.
func SetupStderrLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: applog.ParseLevel(level)})
	logger := applog.New(applog.Config{Component: applog.ComponentProvision, Handler: handler})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend builds the configured data layer or exits.
func OpenBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// NewLocker returns a Redis-backed provisioning lock when REDIS_ADDR is set
// and a no-op lock otherwise. The cleanup closes the Redis client.
func NewLocker(ctx context.Context, logger *slog.Logger, cfg *config.Config) (provision.Locker, func() error) {
	if cfg.RedisAddr == "" {
		return provision.NopLocker{}, func() error { return nil }
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, provisioning runs unlocked", "addr", cfg.RedisAddr, "error", err)
		_ = rdb.Close()
		return provision.NopLocker{}, func() error { return nil }
	}
	logger.Info("Provisioning lock enabled", "addr", cfg.RedisAddr, "ttl", cfg.ProvisionLockTTL)
	return provision.NewRedisLocker(rdb, cfg.ProvisionLockTTL), rdb.Close
}

// NewEngine wires the provisioning engine for cfg.
func NewEngine(s provision.Store, cfg *config.Config, locker provision.Locker) (*provision.Engine, error) {
	defaults, err := provision.DefaultsByVersion(cfg.DefaultsVersion)
	if err != nil {
		return nil, err
	}
	return provision.NewEngine(s, defaults, provision.WithLocker(locker))
}

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM and a
// channel closed once cleanup has run or timeout elapsed.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
