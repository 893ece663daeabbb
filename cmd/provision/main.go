package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/services"
)

type options struct {
	userID           string
	createPreference bool
	currency         string
}

func main() {
	var opts options
	flag.StringVar(&opts.userID, "user", "", "Required: user id to provision")
	flag.BoolVar(&opts.createPreference, "create-preference", false, "Create the preference row first when it is missing")
	flag.StringVar(&opts.currency, "currency", "", "Currency for a created preference (defaults to the provisioning defaults)")
	timeout := flag.Duration("timeout", time.Minute, "Overall time limit")
	flag.Parse()

	if strings.TrimSpace(opts.userID) == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupStderrLogger(os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err := run(ctx, logger, opts)
	cancel()
	if err != nil {
		logger.Error("Provisioning failed", "error", err, "user_id", opts.userID)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg := cli.LoadAndValidateConfig(logger)
	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", "error", err)
		}
	}()
	locker, closeLocker := cli.NewLocker(ctx, logger, cfg)
	defer closeLocker()

	engine, err := cli.NewEngine(res.Store, cfg, locker)
	if err != nil {
		return fmt.Errorf("defaults %s: %w", cfg.DefaultsVersion, err)
	}

	if opts.createPreference {
		existing, err := res.Store.FindPreference(ctx, opts.userID)
		if err != nil {
			return fmt.Errorf("read preference: %w", err)
		}
		if existing == nil {
			prefs := services.NewPreferenceService(res.Store, engine.Defaults().Currency)
			if _, err := prefs.CreatePreference(ctx, opts.userID, services.PreferenceInput{Currency: opts.currency}); err != nil {
				return fmt.Errorf("create preference: %w", err)
			}
		}
	}

	result, err := engine.Run(ctx, opts.userID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
