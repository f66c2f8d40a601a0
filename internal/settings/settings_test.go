package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, defaultCurrency string) *Store {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return New(repo, defaultCurrency, log.Discard())
}

func TestCurrencyDefaults(t *testing.T) {
	ctx := context.Background()

	s := newStore(t, "")
	code, err := s.CurrencyCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCurrencyCode, code)
	symbol, err := s.CurrencySymbol(ctx)
	require.NoError(t, err)
	assert.Equal(t, "₹", symbol)

	s = newStore(t, "eur")
	code, err = s.CurrencyCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)
}

func TestSetCurrencyCode(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	require.NoError(t, s.SetCurrencyCode(ctx, " usd "))
	code, err := s.CurrencyCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", code)
	symbol, err := s.CurrencySymbol(ctx)
	require.NoError(t, err)
	assert.Equal(t, "$", symbol)

	err = s.SetCurrencyCode(ctx, "XYZ1")
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	code, err = s.CurrencyCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", code, "rejected code leaves the preference unchanged")
}

func TestFlags(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	done, err := s.SetupDone(ctx)
	require.NoError(t, err)
	assert.False(t, done)
	require.NoError(t, s.MarkSetupDone(ctx))
	done, err = s.SetupDone(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	lock, err := s.AppLockEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, lock)
	require.NoError(t, s.SetAppLockEnabled(ctx, false))
	lock, err = s.AppLockEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, lock)

	vib, err := s.VibrationEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, vib)
	require.NoError(t, s.SetVibrationEnabled(ctx, false))
	vib, err = s.VibrationEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, vib)
}

type fakeBackend map[string]string

func (f fakeBackend) Setting(_ context.Context, key string) (string, bool, error) {
	v, ok := f[key]
	return v, ok, nil
}

func (f fakeBackend) SetSetting(_ context.Context, key, value string, _ int64) error {
	f[key] = value
	return nil
}

func TestInvalidFlagFallsBackToDefault(t *testing.T) {
	s := New(fakeBackend{KeyVibrationEnabled: "maybe"}, "", log.Discard())
	vib, err := s.VibrationEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, vib)
}
