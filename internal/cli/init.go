// Package cli provides common CLI initialization utilities.
// This package consolidates the bootstrap shared by cmd/cashbook,
// cmd/cashbook-server, cmd/reminder-worker and cmd/notify-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/config"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/settings"
	"cashbook/internal/sheets"
	"cashbook/internal/sheets/google"
	"cashbook/internal/sheets/memory"
	"cashbook/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging at the given level and sets
// it as the default logger. An unknown level falls back to info.
func SetupLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentApp})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// SetupCLILogger logs to stderr so command output stays clean. Info is
// raised to warn; debug is kept when asked for.
func SetupCLILogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil || lvl == slog.LevelInfo {
		lvl = slog.LevelWarn
	}
	logger := log.New(log.Config{
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App bundles the ledger and everything built directly on its database.
type App struct {
	Repo     *storage.SQLiteRepository
	Ledger   *ledger.Ledger
	Settings *settings.Store
	Logger   *log.Logger
}

// Open opens the database, wires the ledger and preference store, and seeds
// the default accounts on first run.
func Open(ctx context.Context, logger *log.Logger, cfg *config.Config) (*App, error) {
	repo, err := storage.NewSQLiteRepository(cfg.LedgerDBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger database %s: %w", cfg.LedgerDBPath, err)
	}

	l := ledger.New(repo, nil, logger.WithComponent(log.ComponentLedger))
	if _, err := l.EnsureDefaultAccounts(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("seed default accounts: %w", err)
	}

	return &App{
		Repo:     repo,
		Ledger:   l,
		Settings: settings.New(repo, cfg.CurrencyCode, logger),
		Logger:   logger,
	}, nil
}

// MustOpen is Open that exits the process on failure.
func MustOpen(ctx context.Context, logger *log.Logger, cfg *config.Config) *App {
	app, err := Open(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger", log.FieldError, err, "path", cfg.LedgerDBPath)
		os.Exit(1)
	}
	return app
}

func (a *App) Close() error {
	return a.Repo.Close()
}

// NewNotifier returns the queue notifier when AMQP is configured and the log
// notifier otherwise. The returned closer releases the broker connection.
func NewNotifier(logger *log.Logger, cfg *config.Config) (services.Notifier, func() error, error) {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP not configured, reminders go to the log")
		return services.NewLogNotifier(logger), func() error { return nil }, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	return services.NewQueueNotifier(client), client.Close, nil
}

// NewSheetWriter returns the Google Sheets writer when a spreadsheet is
// configured and an in-memory sheet otherwise.
func NewSheetWriter(ctx context.Context, cfg *config.Config) (sheets.RowWriter, error) {
	if !cfg.SheetsEnabled() {
		return memory.New(), nil
	}
	return google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	})
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
