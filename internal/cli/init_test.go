package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"cashbook/internal/config"
	"cashbook/internal/live"
	"cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LedgerDBPath: filepath.Join(t.TempDir(), "cashbook.db"),
		CurrencyCode: "EUR",
	}
}

func TestOpenSeedsDefaultAccounts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	app, err := Open(ctx, log.Discard(), cfg)
	require.NoError(t, err)
	accounts, err := live.Once(app.Ledger.Accounts(ctx))
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Cash", accounts[0].Name)
	assert.Equal(t, "Bank", accounts[1].Name)

	code, err := app.Settings.CurrencyCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)
	require.NoError(t, app.Close())

	// Reopening the same file does not seed again.
	app, err = Open(ctx, log.Discard(), cfg)
	require.NoError(t, err)
	defer app.Close()
	accounts, err = live.Once(app.Ledger.Accounts(ctx))
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestNewNotifierWithoutAMQP(t *testing.T) {
	n, closer, err := NewNotifier(log.Discard(), &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &services.LogNotifier{}, n)
	assert.NoError(t, closer())
}

func TestNewSheetWriterWithoutSpreadsheet(t *testing.T) {
	w, err := NewSheetWriter(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, w)
}

func TestSetupLogger(t *testing.T) {
	assert.NotNil(t, SetupLogger("debug"))
	assert.NotNil(t, SetupLogger("nonsense"))

	logger := SetupCLILogger("info")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	logger = SetupCLILogger("debug")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
