package commands

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"cashbook/internal/backup"
	"cashbook/internal/core"
	"cashbook/internal/sheets"
	"cashbook/internal/sheets/memory"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type setupCmd struct {
	env  *Env
	cash string
	bank string
}

func (*setupCmd) Name() string     { return "setup" }
func (*setupCmd) Synopsis() string { return "first-run setup with opening balances" }
func (*setupCmd) Usage() string {
	return `cashbook setup [-cash <amount>] [-bank <amount>]

  Creates the Cash and Bank accounts if needed and records positive opening
  balances on them. Does nothing once setup is done.
`
}

func (c *setupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cash, "cash", "0", "Opening cash balance.")
	f.StringVar(&c.bank, "bank", "0", "Opening bank balance.")
}

func (c *setupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amounts := make([]decimal.Decimal, 2)
	for i, s := range []string{c.cash, c.bank} {
		d, err := core.ParseAmount(s)
		if err != nil {
			return c.env.usage(f, "amount %q: %v", s, err)
		}
		amounts[i] = d
	}

	done, err := c.env.Settings.SetupDone(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	if done {
		fmt.Fprintln(c.env.Out, "Setup already done.")
		return subcommands.ExitSuccess
	}
	if err := c.env.Ledger.CompleteSetup(ctx, c.env.Settings, amounts[0], amounts[1], c.env.Now()); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintln(c.env.Out, "Setup complete.")
	return subcommands.ExitSuccess
}

type currencyCmd struct {
	env *Env
}

func (*currencyCmd) Name() string     { return "currency" }
func (*currencyCmd) Synopsis() string { return "show or change the display currency" }
func (*currencyCmd) Usage() string {
	return `cashbook currency [<ISO code>]
`
}
func (*currencyCmd) SetFlags(*flag.FlagSet) {}

func (c *currencyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch f.NArg() {
	case 0:
	case 1:
		if err := c.env.Settings.SetCurrencyCode(ctx, f.Arg(0)); err != nil {
			return c.env.fail(err)
		}
	default:
		return c.env.usage(f, "expected at most one currency code")
	}
	code, err := c.env.Settings.CurrencyCode(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	symbol, err := c.env.Settings.CurrencySymbol(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "%s (%s)\n", code, symbol)
	return subcommands.ExitSuccess
}

type exportCmd struct {
	env  *Env
	file string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a JSON backup of the whole ledger" }
func (*exportCmd) Usage() string {
	return `cashbook export [-o <file>]

  Defaults to a timestamped file in the backup directory.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "o", "", "Backup file to write.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := c.file
	if path == "" {
		path = filepath.Join(c.env.BackupDir, backup.DefaultFileName(c.env.Now()))
	}
	sum, err := c.env.Backup.ExportToFile(ctx, path)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Wrote %s: %d accounts, %d transactions, %d planned items.\n",
		path, sum.Accounts, sum.Transactions, sum.PlannedItems)
	return subcommands.ExitSuccess
}

type importCmd struct {
	env *Env
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the ledger with a JSON backup" }
func (*importCmd) Usage() string {
	return `cashbook import <file>

  Everything currently stored is replaced. A malformed file changes nothing.
`
}
func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.usage(f, "expected one backup file")
	}
	sum, err := c.env.Backup.ImportFromFile(ctx, f.Arg(0))
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Restored %d accounts, %d transactions, %d planned items.\n",
		sum.Accounts, sum.Transactions, sum.PlannedItems)
	return subcommands.ExitSuccess
}

type sheetExportCmd struct {
	env    *Env
	from   string
	to     string
	dryRun bool
}

func (*sheetExportCmd) Name() string     { return "sheet-export" }
func (*sheetExportCmd) Synopsis() string { return "export transactions to a spreadsheet" }
func (*sheetExportCmd) Usage() string {
	return `cashbook sheet-export [-from <date>] [-to <date>] [-dry-run]

  Writes the transactions of the range to the configured Google Sheet. The
  range defaults to the current month up to now.
`
}

func (c *sheetExportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Range start (inclusive).")
	f.StringVar(&c.to, "to", "", "Range end (inclusive).")
	f.BoolVar(&c.dryRun, "dry-run", false, "Print the rows instead of writing them.")
}

func (c *sheetExportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	now := c.env.Now().In(c.env.Location)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, c.env.Location)
	to := now
	var err error
	if c.from != "" {
		if from, err = parseWhen(c.from, c.env.Location); err != nil {
			return c.env.usage(f, "%v", err)
		}
	}
	if c.to != "" {
		if to, err = parseUntil(c.to, c.env.Location); err != nil {
			return c.env.usage(f, "%v", err)
		}
	}

	var writer sheets.RowWriter
	mem := memory.New()
	switch {
	case c.dryRun:
		writer = mem
	case c.env.NewSheetWriter == nil:
		return c.env.fail(fmt.Errorf("no spreadsheet configured"))
	default:
		if writer, err = c.env.NewSheetWriter(ctx); err != nil {
			return c.env.fail(err)
		}
	}

	exporter := sheets.NewExporter(c.env.Ledger, writer, c.env.Location, c.env.Logger)
	sum, err := exporter.Export(ctx, from, to)
	if err != nil {
		return c.env.fail(err)
	}

	if c.dryRun {
		c.env.printMarkdown(rowsTable(mem.Rows()))
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(c.env.Out, "Exported %d transactions to %s.\n", sum.Transactions, sum.Range)
	return subcommands.ExitSuccess
}

// rowsTable renders sheet rows, the first being the header.
func rowsTable(rows [][]any) string {
	if len(rows) == 0 {
		return ""
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = make([]string, len(r))
		for j, v := range r {
			cells[i][j] = fmt.Sprint(v)
		}
	}
	return table(cells[0], cells[1:])
}
