package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)

	locker, closeLocker := cli.NewLocker(ctx, logger, cfg)
	engine, err := cli.NewEngine(res.Store, cfg, locker)
	if err != nil {
		logger.Error("Invalid provisioning defaults", "error", err, "version", cfg.DefaultsVersion)
		os.Exit(1)
	}

	deps := apphttp.Deps{
		Provisioner:   engine,
		Ledger:        services.NewTransactionService(res.Store, services.WithTransferLegs(cfg.TransferLegs)),
		Preferences:   services.NewPreferenceService(res.Store, engine.Defaults().Currency),
		Reports:       services.NewReportService(res.Store, report.Aggregator{Location: cfg.Location()}),
		Currencies:    res.Store,
		Notifications: res.Notifications,
		Ready:         res.Ping,
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Options{
		RateLimitRPM:   cfg.RateLimitRPM,
		RequestTimeout: cfg.RequestTimeout,
		Location:       cfg.Location(),
	})
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := closeLocker(); err != nil {
			logger.Warn("Redis close error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"defaults", cfg.DefaultsVersion,
		"transfer_legs", cfg.TransferLegs,
		"activity_feed", cfg.AMQPURL != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
