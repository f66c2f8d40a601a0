// Package settings keeps user preferences in the ledger database.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/log"
)

const (
	KeyCurrencyCode     = "currency_code"
	KeySetupDone        = "setup_done"
	KeyAppLockEnabled   = "app_lock_enabled"
	KeyVibrationEnabled = "vibration_enabled"
)

// Backend is the key-value table the preferences live in.
type Backend interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string, updatedAtMillis int64) error
}

type Store struct {
	backend         Backend
	logger          *log.Logger
	defaultCurrency string
	now             func() time.Time
}

// New returns a preference store. defaultCurrency is used until a currency
// has been chosen; an empty value means core.DefaultCurrencyCode.
func New(backend Backend, defaultCurrency string, logger *log.Logger) *Store {
	if defaultCurrency == "" {
		defaultCurrency = core.DefaultCurrencyCode
	}
	if logger == nil {
		logger = log.Default(log.ComponentSettings)
	}
	return &Store{
		backend:         backend,
		logger:          logger.WithComponent(log.ComponentSettings),
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             time.Now,
	}
}

func (s *Store) CurrencyCode(ctx context.Context) (string, error) {
	v, ok, err := s.backend.Setting(ctx, KeyCurrencyCode)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return s.defaultCurrency, nil
	}
	return v, nil
}

// SetCurrencyCode stores an ISO 4217 code after checking it is known.
func (s *Store) SetCurrencyCode(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !core.KnownCurrency(code) {
		return &core.ValidationError{Field: "currency", Err: fmt.Errorf("unknown currency code %q", code)}
	}
	return s.set(ctx, KeyCurrencyCode, code)
}

// CurrencySymbol is derived from the currency code and cannot be set.
func (s *Store) CurrencySymbol(ctx context.Context) (string, error) {
	code, err := s.CurrencyCode(ctx)
	if err != nil {
		return "", err
	}
	return core.CurrencySymbol(code), nil
}

func (s *Store) SetupDone(ctx context.Context) (bool, error) {
	return s.flag(ctx, KeySetupDone, false)
}

func (s *Store) MarkSetupDone(ctx context.Context) error {
	return s.set(ctx, KeySetupDone, strconv.FormatBool(true))
}

func (s *Store) AppLockEnabled(ctx context.Context) (bool, error) {
	return s.flag(ctx, KeyAppLockEnabled, true)
}

func (s *Store) SetAppLockEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, KeyAppLockEnabled, strconv.FormatBool(enabled))
}

func (s *Store) VibrationEnabled(ctx context.Context) (bool, error) {
	return s.flag(ctx, KeyVibrationEnabled, true)
}

func (s *Store) SetVibrationEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, KeyVibrationEnabled, strconv.FormatBool(enabled))
}

// flag reads a boolean preference. Unparseable values fall back to def.
func (s *Store) flag(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := s.backend.Setting(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring invalid preference", "key", key, "value", v)
		return def, nil
	}
	return b, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if err := s.backend.SetSetting(ctx, key, value, s.now().UnixMilli()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save preference", "key", key, log.FieldError, err)
		return err
	}
	s.logger.InfoContext(ctx, "Preference saved", "key", key, "value", value)
	return nil
}
