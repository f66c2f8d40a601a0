package main

import (
	"context"
	"flag"
	"os"
	"path"
	"time"

	"cashbook/internal/backup"
	"cashbook/internal/cli"
	"cashbook/internal/commands"
	"cashbook/internal/services"
	"cashbook/internal/sheets"

	"github.com/google/subcommands"
)

var plain = flag.Bool("plain", false, "Print tables as markdown source.")

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupCLILogger("warn"))
	logger := cli.SetupCLILogger(cfg.LogLevel)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(subcommands.HelpCommand(), "")
	commander.Register(subcommands.FlagsCommand(), "")
	commander.Register(subcommands.CommandsCommand(), "")

	ctx := context.Background()
	app := cli.MustOpen(ctx, logger, cfg)

	env := &commands.Env{
		Ledger:    app.Ledger,
		Settings:  app.Settings,
		Backup:    backup.NewEngine(app.Ledger, logger),
		Logger:    logger,
		Now:       time.Now,
		Location:  time.Local,
		BackupDir: cfg.BackupDir,
		NewNotifier: func() (services.Notifier, func() error, error) {
			return cli.NewNotifier(logger, cfg)
		},
		NewSheetWriter: func(ctx context.Context) (sheets.RowWriter, error) {
			return cli.NewSheetWriter(ctx, cfg)
		},
	}
	commands.Register(commander, env)

	flag.Parse()
	env.Plain = *plain

	status := commander.Execute(ctx)
	if err := app.Close(); err != nil {
		logger.Error("Failed to close ledger", "error", err)
	}
	os.Exit(int(status))
}
