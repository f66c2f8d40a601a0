package http

import (
	"bytes"
	"fmt"
	"net/http"

	"cashbook/internal/backup"
	"cashbook/internal/reminder"
	"cashbook/internal/services"
)

type summaryDTO struct {
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
	PlannedItems int `json:"plannedItems"`
}

type notificationDTO struct {
	ID     int64  `json:"id"`
	ItemID int64  `json:"itemId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type settingsDTO struct {
	CurrencyCode     string `json:"currencyCode"`
	CurrencySymbol   string `json:"currencySymbol"`
	SetupDone        bool   `json:"setupDone"`
	AppLockEnabled   bool   `json:"appLockEnabled"`
	VibrationEnabled bool   `json:"vibrationEnabled"`
}

// handleBackup downloads the whole ledger as a backup document.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.backup.Export(r.Context(), &buf); err != nil {
		writeError(w, r, "backup", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", backup.DefaultFileName(s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleRestore replaces the ledger with the uploaded backup document.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	sum, err := s.backup.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, summaryDTO{
		Accounts:     sum.Accounts,
		Transactions: sum.Transactions,
		PlannedItems: sum.PlannedItems,
	})
}

// handleReminders previews the reminders a pass would deliver now without
// delivering them.
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.PendingPlanned(r.Context())
	if err != nil {
		writeError(w, r, "reminders", err)
		return
	}
	code, err := s.settings.CurrencyCode(r.Context())
	if err != nil {
		writeError(w, r, "reminders", err)
		return
	}

	events := reminder.Evaluate(items, s.now().In(s.loc))
	out := make([]notificationDTO, 0, len(events))
	for _, ev := range events {
		n := services.RenderNotification(ev, code)
		out = append(out, notificationDTO{ID: n.ID, ItemID: n.ItemID, Title: n.Title, Body: n.Body})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	dto, err := s.readSettings(r)
	if err != nil {
		writeError(w, r, "read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update settings", err)
		return
	}
	ctx := r.Context()
	if req.CurrencyCode != nil {
		if err := s.settings.SetCurrencyCode(ctx, *req.CurrencyCode); err != nil {
			writeError(w, r, "update settings", err)
			return
		}
	}
	if req.AppLockEnabled != nil {
		if err := s.settings.SetAppLockEnabled(ctx, *req.AppLockEnabled); err != nil {
			writeError(w, r, "update settings", err)
			return
		}
	}
	if req.VibrationEnabled != nil {
		if err := s.settings.SetVibrationEnabled(ctx, *req.VibrationEnabled); err != nil {
			writeError(w, r, "update settings", err)
			return
		}
	}
	s.handleGetSettings(w, r)
}

// handleSetup records the opening balances of the first run.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "setup", err)
		return
	}
	if req.Cash == "" {
		req.Cash = "0"
	}
	if req.Bank == "" {
		req.Bank = "0"
	}
	cash, err := req.Cash.decimal("cash")
	if err != nil {
		writeError(w, r, "setup", err)
		return
	}
	bank, err := req.Bank.decimal("bank")
	if err != nil {
		writeError(w, r, "setup", err)
		return
	}
	if err := s.ledger.CompleteSetup(r.Context(), s.settings, cash, bank, s.now()); err != nil {
		writeError(w, r, "setup", err)
		return
	}
	s.handleGetSettings(w, r)
}

func (s *Server) readSettings(r *http.Request) (settingsDTO, error) {
	ctx := r.Context()
	var dto settingsDTO
	var err error
	if dto.CurrencyCode, err = s.settings.CurrencyCode(ctx); err != nil {
		return dto, err
	}
	if dto.CurrencySymbol, err = s.settings.CurrencySymbol(ctx); err != nil {
		return dto, err
	}
	if dto.SetupDone, err = s.settings.SetupDone(ctx); err != nil {
		return dto, err
	}
	if dto.AppLockEnabled, err = s.settings.AppLockEnabled(ctx); err != nil {
		return dto, err
	}
	if dto.VibrationEnabled, err = s.settings.VibrationEnabled(ctx); err != nil {
		return dto, err
	}
	return dto, nil
}
