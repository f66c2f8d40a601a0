package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 8 << 20

// amountInput accepts an amount as a JSON string or number. Strings may use
// a comma as the decimal separator.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	*a = amountInput(b)
	return nil
}

func (a amountInput) decimal(field string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: field, Err: err}
	}
	return d, nil
}

type accountRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (req accountRequest) account(id int64) (core.Account, error) {
	kind, err := core.ParseAccountKind(req.Kind)
	if err != nil {
		return core.Account{}, &core.ValidationError{Field: "kind", Err: err}
	}
	return core.Account{ID: id, Name: req.Name, Kind: kind}, nil
}

type transactionRequest struct {
	AccountID   int64       `json:"accountId"`
	Direction   string      `json:"direction"`
	Amount      amountInput `json:"amount"`
	OccurredAt  *int64      `json:"occurredAt"`
	Description string      `json:"description"`
	LegacyKind  string      `json:"legacyKind"`
}

type plannedItemRequest struct {
	Kind             string      `json:"kind"`
	Amount           amountInput `json:"amount"`
	DueAt            int64       `json:"dueAt"`
	Description      string      `json:"description"`
	SourceAccountTag string      `json:"sourceAccountTag"`
}

func (req plannedItemRequest) plannedItem() (core.PlannedItem, error) {
	kind, err := core.ParsePlannedKind(req.Kind)
	if err != nil {
		return core.PlannedItem{}, &core.ValidationError{Field: "kind", Err: err}
	}
	amount, err := req.Amount.decimal("amount")
	if err != nil {
		return core.PlannedItem{}, err
	}
	tag := core.LegacyCash
	if req.SourceAccountTag != "" {
		if tag, err = core.ParseLegacyKind(req.SourceAccountTag); err != nil {
			return core.PlannedItem{}, &core.ValidationError{Field: "sourceAccountTag", Err: err}
		}
	}
	if req.DueAt == 0 {
		return core.PlannedItem{}, &core.ValidationError{Field: "dueAt", Err: core.ErrZeroTime}
	}
	return core.PlannedItem{
		Kind:             kind,
		Amount:           amount,
		DueAt:            core.FromMillis(req.DueAt),
		Description:      strings.TrimSpace(req.Description),
		SourceAccountTag: tag,
		Status:           core.Pending,
	}, nil
}

type settingsRequest struct {
	CurrencyCode     *string `json:"currencyCode"`
	AppLockEnabled   *bool   `json:"appLockEnabled"`
	VibrationEnabled *bool   `json:"vibrationEnabled"`
}

type setupRequest struct {
	Cash amountInput `json:"cash"`
	Bank amountInput `json:"bank"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Err: err}
	}
	return nil
}

// pathID reads a positive id from a chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: name, Err: core.ErrInvalidID}
	}
	return id, nil
}

// queryTime parses a query parameter given as epoch millis, RFC 3339 or a
// plain date. Plain dates are taken in loc at the start of the day.
func queryTime(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	t, _, err := parseQueryTime(r, name, loc)
	return t, err
}

// queryRangeEnd is queryTime for an inclusive range end: a plain date covers
// the whole day, up to its last millisecond.
func queryRangeEnd(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	t, dateOnly, err := parseQueryTime(r, name, loc)
	if err != nil || !dateOnly {
		return t, err
	}
	return core.EndOfDay(t), nil
}

func parseQueryTime(r *http.Request, name string, loc *time.Location) (time.Time, bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, false, &core.ValidationError{Field: name, Err: core.ErrZeroTime}
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return core.FromMillis(ms), false, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, &core.ValidationError{Field: name, Err: fmt.Errorf("unrecognized time %q", v)}
}

// queryInt reads an optional positive integer, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &core.ValidationError{Field: name, Err: fmt.Errorf("not a non-negative integer: %q", v)}
	}
	return n, nil
}
