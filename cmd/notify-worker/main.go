package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/cli"
	"cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the notify worker")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewNotifyWorker(services.NewLogNotifier(logger.WithComponent(log.ComponentWorker)))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
	})

	logger.Info("Notify worker started, consuming reminders", "queue", cfg.AMQPQueue)
	if err := client.ConsumeReminders(ctx, w.HandleReminderMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Notify worker stopped")
}
