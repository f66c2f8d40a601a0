package commands

import (
	"bytes"
	"context"
	"flag"
	"io"
	"path/filepath"
	"testing"
	"time"

	"cashbook/internal/backup"
	"cashbook/internal/ledger"
	"cashbook/internal/live"
	"cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/settings"
	"cashbook/internal/sheets"
	"cashbook/internal/sheets/memory"
	"cashbook/internal/storage"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	env      *Env
	out      *bytes.Buffer
	errOut   *bytes.Buffer
	notifier *services.LogNotifier
	sheet    *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "cashbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	l := ledger.New(repo, nil, log.Discard())
	_, err = l.EnsureDefaultAccounts(context.Background())
	require.NoError(t, err)

	te := &testEnv{
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
		notifier: services.NewLogNotifier(log.Discard()),
		sheet:    memory.New(),
	}
	te.env = &Env{
		Ledger:    l,
		Settings:  settings.New(repo, "INR", log.Discard()),
		Backup:    backup.NewEngine(l, log.Discard()),
		Logger:    log.Discard(),
		Out:       te.out,
		Err:       te.errOut,
		Now:       func() time.Time { return fixedNow },
		Location:  time.UTC,
		BackupDir: t.TempDir(),
		Plain:     true,
		NewNotifier: func() (services.Notifier, func() error, error) {
			return te.notifier, func() error { return nil }, nil
		},
		NewSheetWriter: func(context.Context) (sheets.RowWriter, error) {
			return te.sheet, nil
		},
	}
	return te
}

func (te *testEnv) run(t *testing.T, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	fs := flag.NewFlagSet("cashbook", flag.ContinueOnError)
	cdr := subcommands.NewCommander(fs, "cashbook")
	cdr.Output = io.Discard
	cdr.Error = io.Discard
	Register(cdr, te.env)
	require.NoError(t, fs.Parse(args))

	te.out.Reset()
	te.errOut.Reset()
	status := cdr.Execute(context.Background())
	return te.out.String(), status
}

func TestAccountCommands(t *testing.T) {
	te := newTestEnv(t)

	out, status := te.run(t, "accounts")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "| 1 | Cash | Cash | ₹0.00 | ₹0.00 | ₹0.00 |")
	assert.Contains(t, out, "| 2 | Bank | Bank |")

	out, status = te.run(t, "add-account", "-name", "Visa", "-kind", "Credit Card")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Equal(t, "Created account 3.\n", out)

	_, status = te.run(t, "edit-account", "-name", "Amex", "3")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())

	out, _ = te.run(t, "accounts")
	assert.Contains(t, out, "| 3 | Amex | CreditCard |")

	_, status = te.run(t, "add-account", "-name", "X", "-kind", "Gold")
	assert.Equal(t, subcommands.ExitUsageError, status)

	_, status = te.run(t, "rm-account", "3")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, status = te.run(t, "rm-account", "3")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, te.errOut.String(), "not found")

	_, status = te.run(t, "edit-account", "abc")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestTransactionCommands(t *testing.T) {
	te := newTestEnv(t)

	out, status := te.run(t, "add-tx", "-dir", "credit", "-amount", "100", "-desc", "salary")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Equal(t, "Recorded transaction 1 on Cash.\n", out)

	_, status = te.run(t, "add-tx", "-account", "2", "-dir", "debit", "-amount", "20,50", "-at", "2025-04-09", "-desc", "groceries")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())

	out, _ = te.run(t, "balance")
	assert.Equal(t, "Balance: ₹79.50\n", out)

	out, _ = te.run(t, "balance", "-account", "1")
	assert.Contains(t, out, "Balance: ₹100.00")

	out, _ = te.run(t, "balance", "-legacy", "bank")
	assert.Equal(t, "Balance (BANK): -₹20.50\n", out)

	out, _ = te.run(t, "txs", "-n", "1")
	assert.Contains(t, out, "salary")
	assert.NotContains(t, out, "groceries")

	out, _ = te.run(t, "txs", "-account", "2")
	assert.Contains(t, out, "| 2 | 2025-04-09 00:00 | Bank | DEBIT | ₹20.50 | groceries |")

	out, _ = te.run(t, "txs", "-from", "2025-04-10")
	assert.Contains(t, out, "salary")
	assert.NotContains(t, out, "groceries")

	out, _ = te.run(t, "txs", "-from", "2025-04-09", "-to", "2025-04-10")
	assert.Contains(t, out, "salary")
	assert.Contains(t, out, "groceries")

	out, _ = te.run(t, "txs", "-from", "2025-04-09", "-to", "2025-04-09")
	assert.NotContains(t, out, "salary")
	assert.Contains(t, out, "groceries")

	_, status = te.run(t, "add-tx", "-dir", "sideways", "-amount", "1")
	assert.Equal(t, subcommands.ExitUsageError, status)
	_, status = te.run(t, "add-tx", "-dir", "credit", "-amount", "-1")
	assert.Equal(t, subcommands.ExitUsageError, status)
	_, status = te.run(t, "add-tx", "-account", "9", "-dir", "credit", "-amount", "1")
	assert.Equal(t, subcommands.ExitFailure, status)

	_, status = te.run(t, "rm-tx", "2")
	require.Equal(t, subcommands.ExitSuccess, status)
	out, _ = te.run(t, "balance")
	assert.Equal(t, "Balance: ₹100.00\n", out)
}

func TestOrphanedTransactionsCommand(t *testing.T) {
	te := newTestEnv(t)

	_, status := te.run(t, "add-tx", "-account", "2", "-dir", "credit", "-amount", "5", "-desc", "left behind")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, status = te.run(t, "rm-account", "2")
	require.Equal(t, subcommands.ExitSuccess, status)

	out, _ := te.run(t, "txs", "-orphaned")
	assert.Contains(t, out, "left behind")
	out, _ = te.run(t, "balance")
	assert.Equal(t, "Balance: ₹5.00\n", out)
}

func TestPlannedCommands(t *testing.T) {
	te := newTestEnv(t)

	out, status := te.run(t, "plan", "-kind", "payment", "-amount", "1200", "-due", "2025-04-11", "-desc", "Rent")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Equal(t, "Planned item 1 due 2025-04-11 00:00.\n", out)

	_, status = te.run(t, "plan", "-kind", "income", "-amount", "50", "-due", "2025-04-10 18:00", "-desc", "Refund", "-tag", "bank")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())

	_, status = te.run(t, "plan", "-kind", "income", "-amount", "50")
	assert.Equal(t, subcommands.ExitUsageError, status)

	out, _ = te.run(t, "plans")
	assert.Contains(t, out, "| 2 | 2025-04-10 18:00 | INCOME | ₹50.00 | Refund | PENDING |")

	out, _ = te.run(t, "plans", "-kind", "payment")
	assert.Contains(t, out, "Rent")
	assert.NotContains(t, out, "Refund")

	out, _ = te.run(t, "plans", "-due", "2025-04-10 23:59")
	assert.Contains(t, out, "Refund")
	assert.NotContains(t, out, "Rent")

	out, status = te.run(t, "remind", "-dry-run")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "[2] Reminder: Upcoming Income Today")
	assert.Contains(t, out, "[100001] Reminder: Upcoming Payment Tomorrow")
	assert.Empty(t, te.notifier.Shown())

	out, status = te.run(t, "remind")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Equal(t, "Sent 2 reminder(s).\n", out)
	shown := te.notifier.Shown()
	require.Len(t, shown, 2)
	assert.Equal(t, "Rent: ₹1,200.00 is due tomorrow.", shown[100001].Body)

	_, status = te.run(t, "complete", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	out, _ = te.run(t, "plans", "-kind", "payment")
	assert.NotContains(t, out, "Rent")

	_, status = te.run(t, "rm-plan", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, status = te.run(t, "complete", "1")
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestSetupAndCurrency(t *testing.T) {
	te := newTestEnv(t)

	out, status := te.run(t, "setup", "-cash", "25", "-bank", "100.5")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Equal(t, "Setup complete.\n", out)

	out, _ = te.run(t, "setup", "-cash", "25")
	assert.Equal(t, "Setup already done.\n", out)

	out, _ = te.run(t, "currency")
	assert.Equal(t, "INR (₹)\n", out)

	out, status = te.run(t, "currency", "usd")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "USD ($)\n", out)

	out, _ = te.run(t, "balance")
	assert.Equal(t, "Balance: $125.50\n", out)

	_, status = te.run(t, "currency", "XYZ1")
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestExportImport(t *testing.T) {
	te := newTestEnv(t)
	_, status := te.run(t, "add-tx", "-dir", "credit", "-amount", "10")
	require.Equal(t, subcommands.ExitSuccess, status)

	file := filepath.Join(t.TempDir(), "backup.json")
	out, status := te.run(t, "export", "-o", file)
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Contains(t, out, "2 accounts, 1 transactions, 0 planned items")

	out, status = te.run(t, "export")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Contains(t, out, "cashbook-backup-20250410-090000.json")

	_, status = te.run(t, "add-account", "-name", "Extra")
	require.Equal(t, subcommands.ExitSuccess, status)

	out, status = te.run(t, "import", file)
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Equal(t, "Restored 2 accounts, 1 transactions, 0 planned items.\n", out)

	accounts, err := live.Once(te.env.Ledger.Accounts(context.Background()))
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	_, status = te.run(t, "import", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, subcommands.ExitFailure, status)
	_, status = te.run(t, "import")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestSheetExport(t *testing.T) {
	te := newTestEnv(t)
	_, status := te.run(t, "add-tx", "-dir", "credit", "-amount", "10", "-desc", "tip")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, status = te.run(t, "add-tx", "-dir", "credit", "-amount", "3", "-at", "2025-03-01")
	require.Equal(t, subcommands.ExitSuccess, status)

	out, status := te.run(t, "sheet-export", "-dry-run")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Contains(t, out, "| ID | Date | Account | Direction | Amount | Description | Legacy Type |")
	assert.Contains(t, out, "| 1 | 2025-04-10 09:00 | Cash | CREDIT | 10 | tip | CASH |")
	assert.Equal(t, 0, te.sheet.Writes())

	out, status = te.run(t, "sheet-export", "-from", "2025-01-01")
	require.Equal(t, subcommands.ExitSuccess, status, te.errOut.String())
	assert.Equal(t, "Exported 2 transactions to mem!A1:G3.\n", out)
	assert.Equal(t, 1, te.sheet.Writes())
}

func TestTable(t *testing.T) {
	got := table([]string{"A", "B"}, [][]string{{"1", "x|y"}})
	assert.Equal(t, "| A | B |\n| --- | --- |\n| 1 | x\\|y |\n", got)
}

func TestParseWhen(t *testing.T) {
	got, err := parseWhen("2025-04-10 18:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 10, 18, 30, 0, 0, time.UTC), got)

	got, err = parseWhen(" 2025-04-10 ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = parseWhen("10/04/2025", time.UTC)
	assert.Error(t, err)
}

func TestParseUntilCoversWholeDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	got, err := parseUntil("2025-01-31", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, int(999*time.Millisecond), loc), got)

	got, err = parseUntil("2025-01-31 12:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 12, 0, 0, 0, loc), got)

	_, err = parseUntil("tomorrow", loc)
	assert.Error(t, err)
}
