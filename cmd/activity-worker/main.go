package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting activity-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the activity worker")
		os.Exit(1)
	}

	// The worker only writes notifications, so the activity feed of the
	// backend itself stays off.
	amqpURL := cfg.AMQPURL
	cfg.AMQPURL = ""
	res := cli.OpenBackend(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(amqpURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	activityWorker := worker.NewActivityWorker(res.Notifications, amqpClient)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := activityWorker.Stop(ctx); err != nil {
			logger.Error("Worker stop error", "error", err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", "error", err)
		}
	})

	if err := activityWorker.Start(ctx); err != nil {
		logger.Error("Failed to start activity worker", "error", err)
		os.Exit(1)
	}
	logger.Info("Activity worker consuming",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"backend", cfg.DataBackend)

	select {
	case <-ctx.Done():
	case <-activityWorker.Done():
		if ctx.Err() == nil {
			logger.Error("Activity worker exited unexpectedly")
			_ = amqpClient.Close()
			_ = res.Cleanup()
			os.Exit(1)
		}
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Activity worker stopped")
}
