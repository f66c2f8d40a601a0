// Package commands implements the cashbook command line on top of the
// ledger. Each command is a subcommands.Command sharing one Env.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cashbook/internal/backup"
	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/settings"
	"cashbook/internal/sheets"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// Env is what the commands operate on.
type Env struct {
	Ledger   *ledger.Ledger
	Settings *settings.Store
	Backup   *backup.Engine
	Logger   *log.Logger

	Out io.Writer
	Err io.Writer

	Now      func() time.Time
	Location *time.Location

	// BackupDir is where export writes when no file is given.
	BackupDir string
	// Plain prints markdown source instead of rendering it for a terminal.
	Plain bool

	// NewNotifier opens the reminder delivery channel for remind.
	NewNotifier func() (services.Notifier, func() error, error)
	// NewSheetWriter opens the spreadsheet used by sheet-export.
	NewSheetWriter func(ctx context.Context) (sheets.RowWriter, error)
}

// Register adds every command to c.
func Register(c *subcommands.Commander, env *Env) {
	env.defaults()

	c.Register(&accountsCmd{env: env}, "accounts")
	c.Register(&addAccountCmd{env: env}, "accounts")
	c.Register(&editAccountCmd{env: env}, "accounts")
	c.Register(&rmAccountCmd{env: env}, "accounts")

	c.Register(&addTxCmd{env: env}, "transactions")
	c.Register(&rmTxCmd{env: env}, "transactions")
	c.Register(&txsCmd{env: env}, "transactions")
	c.Register(&balanceCmd{env: env}, "transactions")

	c.Register(&planCmd{env: env}, "planned")
	c.Register(&plansCmd{env: env}, "planned")
	c.Register(&completeCmd{env: env}, "planned")
	c.Register(&rmPlanCmd{env: env}, "planned")
	c.Register(&remindCmd{env: env}, "planned")

	c.Register(&setupCmd{env: env}, "data")
	c.Register(&currencyCmd{env: env}, "data")
	c.Register(&exportCmd{env: env}, "data")
	c.Register(&importCmd{env: env}, "data")
	c.Register(&sheetExportCmd{env: env}, "data")
}

func (e *Env) defaults() {
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Err == nil {
		e.Err = os.Stderr
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Location == nil {
		e.Location = time.Local
	}
	if e.Logger == nil {
		e.Logger = log.Default(log.ComponentApp)
	}
}

// fail reports err and returns the failure status.
func (e *Env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(e.Err, "Error:", err)
	return subcommands.ExitFailure
}

// usage reports a usage problem and returns the usage status.
func (e *Env) usage(f *flag.FlagSet, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, "Error: "+format+"\n", args...)
	f.Usage()
	return subcommands.ExitUsageError
}

func (e *Env) printMarkdown(md string) {
	if e.Plain {
		fmt.Fprint(e.Out, md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Fprint(e.Out, md)
		return
	}
	fmt.Fprint(e.Out, out)
}

// money returns a formatter for amounts in the configured currency.
func (e *Env) money(ctx context.Context) (func(decimal.Decimal) string, error) {
	code, err := e.Settings.CurrencyCode(ctx)
	if err != nil {
		return nil, err
	}
	return func(d decimal.Decimal) string {
		if d.IsNegative() {
			return "-" + core.FormatAmount(d.Abs(), code)
		}
		return core.FormatAmount(d, code)
	}, nil
}

// parseWhen accepts "2006-01-02" or "2006-01-02 15:04" in loc.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD [HH:MM]", s)
}

// parseUntil is parseWhen for an inclusive range end: a plain date covers
// the whole day.
func parseUntil(s string, loc *time.Location) (time.Time, error) {
	t, err := parseWhen(s, loc)
	if err != nil {
		return t, err
	}
	if _, derr := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc); derr == nil {
		return core.EndOfDay(t), nil
	}
	return t, nil
}

const dateLayout = "2006-01-02 15:04"

func (e *Env) formatTime(t time.Time) string {
	return t.In(e.Location).Format(dateLayout)
}

// table renders a markdown table. Cell pipes are escaped.
func table(header []string, rows [][]string) string {
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(c, "|", `\|`))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	writeRow(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, r := range rows {
		writeRow(r)
	}
	return b.String()
}
