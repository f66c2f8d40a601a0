package main

import (
	"context"
	"os"
	"time"

	"cashbook/internal/cli"
	"cashbook/internal/log"
	"cashbook/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	app := cli.MustOpen(context.Background(), logger, cfg)
	defer app.Close()

	notifier, closeNotifier, err := cli.NewNotifier(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize notifier", log.FieldError, err)
		os.Exit(1)
	}
	defer closeNotifier()

	loop := services.NewReminderLoop(
		services.NewReminderProcessor(app.Ledger, app.Settings, notifier),
		cfg.ReminderInterval,
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Reminder worker started", "interval", cfg.ReminderInterval.String())
	if err := loop.Run(ctx); err != nil {
		logger.Error("Reminder loop failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder worker stopped")
}
