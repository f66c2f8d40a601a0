package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cashbook/internal/backup"
	"cashbook/internal/cli"
	apphttp "cashbook/internal/http"
	"cashbook/internal/log"
	"cashbook/internal/services"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

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
		return
	}
	defer closeNotifier()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:   app.Ledger,
		Backup:   backup.NewEngine(app.Ledger, logger),
		Settings: app.Settings,
		Logger:   logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	loop := services.NewReminderLoop(
		services.NewReminderProcessor(app.Ledger, app.Settings, notifier),
		cfg.ReminderInterval,
	)

	sigCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)
	g, ctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Info("Starting cashbook server", "port", cfg.Port, "db", cfg.LedgerDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return loop.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", log.FieldError, err)
	}
	if sigCtx.Err() != nil {
		cli.WaitForShutdown(sigCtx, done)
	}
	logger.Info("Server stopped gracefully", "requests", srv.Metrics().TotalRequests)
}
