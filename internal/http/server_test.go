package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"cashbook/internal/backup"
	"cashbook/internal/core"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/settings"
	"cashbook/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	srv    *Server
	ledger *ledger.Ledger
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "cashbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	l := ledger.New(repo, nil, log.Discard())
	_, err = l.EnsureDefaultAccounts(context.Background())
	require.NoError(t, err)

	srv := NewServer(":0", Deps{
		Ledger:   l,
		Backup:   backup.NewEngine(l, log.Discard()),
		Settings: settings.New(repo, "INR", log.Discard()),
		Logger:   log.Discard(),
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, ledger: l}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func TestHealthAndHeaders(t *testing.T) {
	env := newTestServer(t)

	rr := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
	assert.Equal(t, int64(1), env.srv.Metrics().TotalRequests)
}

func TestAccountsCRUD(t *testing.T) {
	env := newTestServer(t)

	rr := env.do(t, http.MethodPost, "/api/accounts", `{"name":"  Wallet ","kind":"savings"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decode[idDTO](t, rr).ID
	assert.Equal(t, int64(3), id)

	rr = env.do(t, http.MethodGet, "/api/accounts/3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, accountDTO{ID: 3, Name: "Wallet", Kind: "Savings"}, decode[accountDTO](t, rr))

	rr = env.do(t, http.MethodPut, "/api/accounts/3", `{"name":"Card","kind":"CreditCard"}`)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/accounts", "")
	accounts := decode[[]accountDTO](t, rr)
	require.Len(t, accounts, 3)
	assert.Equal(t, "Card", accounts[2].Name)
	assert.Equal(t, "CreditCard", accounts[2].Kind)

	rr = env.do(t, http.MethodDelete, "/api/accounts/3", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/accounts/3", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAccountValidationErrors(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		field  string
	}{
		{"unknown kind", http.MethodPost, "/api/accounts", `{"name":"X","kind":"Gold"}`, http.StatusBadRequest, "kind"},
		{"empty name", http.MethodPost, "/api/accounts", `{"name":"  ","kind":"Cash"}`, http.StatusBadRequest, "name"},
		{"unknown field", http.MethodPost, "/api/accounts", `{"nom":"X"}`, http.StatusBadRequest, "body"},
		{"bad id", http.MethodGet, "/api/accounts/abc", "", http.StatusBadRequest, "id"},
		{"missing account", http.MethodPut, "/api/accounts/99", `{"name":"X","kind":"Cash"}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decode[errorResponse](t, rr).Field)
			}
		})
	}
}

func TestTransactionsFlow(t *testing.T) {
	env := newTestServer(t)
	earlier := fixedNow.Add(-time.Hour)

	rr := env.do(t, http.MethodPost, "/api/transactions",
		`{"accountId":1,"direction":"credit","amount":"100.50","occurredAt":`+millis(earlier)+`,"description":"salary"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/transactions",
		`{"accountId":1,"direction":"DEBIT","amount":"20,25","description":"food"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	debitID := decode[idDTO](t, rr).ID

	rr = env.do(t, http.MethodPost, "/api/transactions",
		`{"accountId":2,"direction":"CREDIT","amount":5}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/accounts/1/balance", "")
	assert.Equal(t, "80.25", decode[amountDTO](t, rr).Amount)

	rr = env.do(t, http.MethodGet, "/api/accounts/1/totals", "")
	assert.Equal(t, totalsDTO{Credit: "100.5", Debit: "20.25", Balance: "80.25"}, decode[totalsDTO](t, rr))

	rr = env.do(t, http.MethodGet, "/api/balance", "")
	assert.Equal(t, "85.25", decode[amountDTO](t, rr).Amount)

	rr = env.do(t, http.MethodGet, "/api/balance/legacy/bank", "")
	assert.Equal(t, "5", decode[amountDTO](t, rr).Amount)

	rr = env.do(t, http.MethodGet, "/api/transactions/recent?n=1", "")
	recent := decode[[]transactionDTO](t, rr)
	require.Len(t, recent, 1)
	assert.Equal(t, fixedNow.UnixMilli(), recent[0].OccurredAt)

	rr = env.do(t, http.MethodGet, "/api/transactions/range?from="+millis(earlier)+"&to="+millis(earlier), "")
	ranged := decode[[]transactionDTO](t, rr)
	require.Len(t, ranged, 1)
	assert.Equal(t, "salary", ranged[0].Description)
	assert.Equal(t, "CASH", ranged[0].LegacyKind)

	rr = env.do(t, http.MethodGet, "/api/accounts/stats", "")
	stats := decode[[]accountStatsDTO](t, rr)
	require.Len(t, stats, 2)
	assert.Equal(t, "80.25", stats[0].Balance)

	rr = env.do(t, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(debitID, 10), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(debitID, 10), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/accounts/1/transactions", "")
	assert.Len(t, decode[[]transactionDTO](t, rr), 1)
}

func TestTransactionRangeCoversWholeEndDay(t *testing.T) {
	env := newTestServer(t)
	for _, at := range []time.Time{
		time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	} {
		rr := env.do(t, http.MethodPost, "/api/transactions",
			`{"accountId":1,"direction":"CREDIT","amount":"1","occurredAt":`+millis(at)+`}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := env.do(t, http.MethodGet, "/api/transactions/range?from=2025-01-01&to=2025-01-31", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decode[[]transactionDTO](t, rr), 3)

	end := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	rr = env.do(t, http.MethodGet, "/api/transactions/range?from=2025-01-01&to="+millis(end), "")
	assert.Len(t, decode[[]transactionDTO](t, rr), 2)
}

func TestGetTransactionAndPlannedByID(t *testing.T) {
	env := newTestServer(t)

	rr := env.do(t, http.MethodPost, "/api/transactions",
		`{"accountId":2,"direction":"DEBIT","amount":"12.40","description":"fuel"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	txID := strconv.FormatInt(decode[idDTO](t, rr).ID, 10)

	rr = env.do(t, http.MethodGet, "/api/transactions/"+txID, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[transactionDTO](t, rr)
	assert.Equal(t, "fuel", got.Description)
	assert.Equal(t, "12.4", got.Amount)
	assert.Equal(t, "BANK", got.LegacyKind)

	rr = env.do(t, http.MethodPost, "/api/planned",
		`{"kind":"income","amount":"50","dueAt":`+millis(fixedNow)+`,"description":"Refund"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	plannedID := strconv.FormatInt(decode[idDTO](t, rr).ID, 10)

	rr = env.do(t, http.MethodGet, "/api/planned/"+plannedID, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	item := decode[plannedItemDTO](t, rr)
	assert.Equal(t, "Refund", item.Description)
	assert.Equal(t, "INCOME", item.Kind)
	assert.Equal(t, "PENDING", item.Status)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/transactions/999", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/planned/999", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/planned/abc", "").Code)
}

func TestCreateTransactionRejects(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"negative amount", `{"accountId":1,"direction":"CREDIT","amount":"-5"}`, http.StatusBadRequest},
		{"bad direction", `{"accountId":1,"direction":"SIDEWAYS","amount":"5"}`, http.StatusBadRequest},
		{"no account", `{"direction":"CREDIT","amount":"5"}`, http.StatusBadRequest},
		{"missing account", `{"accountId":42,"direction":"CREDIT","amount":"5"}`, http.StatusNotFound},
		{"bad legacy kind", `{"accountId":1,"direction":"CREDIT","amount":"5","legacyKind":"GOLD"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestOrphanedTransactions(t *testing.T) {
	env := newTestServer(t)

	rr := env.do(t, http.MethodPost, "/api/transactions", `{"accountId":2,"direction":"CREDIT","amount":"40"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/accounts/2", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/transactions/orphaned", "")
	orphans := decode[[]transactionDTO](t, rr)
	require.Len(t, orphans, 1)
	assert.Equal(t, int64(2), orphans[0].AccountID)

	rr = env.do(t, http.MethodGet, "/api/balance", "")
	assert.Equal(t, "40", decode[amountDTO](t, rr).Amount)

	rr = env.do(t, http.MethodGet, "/api/accounts/2/transactions", "")
	assert.Empty(t, decode[[]transactionDTO](t, rr))
}

func TestPlannedItemsAndReminders(t *testing.T) {
	env := newTestServer(t)
	tomorrow := fixedNow.Add(27 * time.Hour)
	nextWeek := fixedNow.Add(7 * 24 * time.Hour)

	rr := env.do(t, http.MethodPost, "/api/planned",
		`{"kind":"payment","amount":"1200","dueAt":`+millis(tomorrow)+`,"description":"Rent"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rentID := decode[idDTO](t, rr).ID

	rr = env.do(t, http.MethodPost, "/api/planned",
		`{"kind":"INCOME","amount":300,"dueAt":`+millis(nextWeek)+`,"description":"Refund","sourceAccountTag":"BANK"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/planned", `{"kind":"INCOME","amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/planned", "")
	all := decode[[]plannedItemDTO](t, rr)
	require.Len(t, all, 2)
	assert.Equal(t, "Rent", all[0].Description)
	assert.Equal(t, "PENDING", all[0].Status)

	rr = env.do(t, http.MethodGet, "/api/planned/kind/income", "")
	assert.Len(t, decode[[]plannedItemDTO](t, rr), 1)

	rr = env.do(t, http.MethodGet, "/api/planned/due?before="+millis(tomorrow), "")
	due := decode[[]plannedItemDTO](t, rr)
	require.Len(t, due, 1)
	assert.Equal(t, rentID, due[0].ID)

	rr = env.do(t, http.MethodGet, "/api/reminders", "")
	require.Equal(t, http.StatusOK, rr.Code)
	reminders := decode[[]notificationDTO](t, rr)
	require.Len(t, reminders, 1)
	assert.Equal(t, rentID+100000, reminders[0].ID)
	assert.Equal(t, "Reminder: Upcoming Payment Tomorrow", reminders[0].Title)
	assert.Equal(t, "Rent: ₹1,200.00 is due tomorrow.", reminders[0].Body)

	rr = env.do(t, http.MethodPost, "/api/planned/"+strconv.FormatInt(rentID, 10)+"/complete", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/reminders", "")
	assert.Empty(t, decode[[]notificationDTO](t, rr))

	rr = env.do(t, http.MethodDelete, "/api/planned/"+strconv.FormatInt(rentID, 10), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/planned/"+strconv.FormatInt(rentID, 10)+"/complete", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBackupAndRestore(t *testing.T) {
	env := newTestServer(t)

	rr := env.do(t, http.MethodPost, "/api/transactions", `{"accountId":1,"direction":"CREDIT","amount":"10"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/backup", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "cashbook-backup-20250410-090000.json")
	doc := rr.Body.Bytes()

	rr = env.do(t, http.MethodPost, "/api/accounts", `{"name":"Extra","kind":"Other"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/restore", string(doc))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, summaryDTO{Accounts: 2, Transactions: 1}, decode[summaryDTO](t, rr))

	rr = env.do(t, http.MethodGet, "/api/accounts", "")
	assert.Len(t, decode[[]accountDTO](t, rr), 2)

	rr = env.do(t, http.MethodPost, "/api/restore", `{"version":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/restore", `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/accounts", "")
	assert.Len(t, decode[[]accountDTO](t, rr), 2)
}

func TestRestoreTooLarge(t *testing.T) {
	env := newTestServer(t)

	body := `{"version":1,"accounts":[],"padding":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rr := env.do(t, http.MethodPost, "/api/restore", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/accounts", "")
	assert.Len(t, decode[[]accountDTO](t, rr), 2)
}

func TestSettingsAndSetup(t *testing.T) {
	env := newTestServer(t)

	rr := env.do(t, http.MethodGet, "/api/settings", "")
	got := decode[settingsDTO](t, rr)
	assert.Equal(t, "INR", got.CurrencyCode)
	assert.False(t, got.SetupDone)
	assert.True(t, got.AppLockEnabled)

	rr = env.do(t, http.MethodPut, "/api/settings", `{"currencyCode":"usd","vibrationEnabled":false}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got = decode[settingsDTO](t, rr)
	assert.Equal(t, "USD", got.CurrencyCode)
	assert.Equal(t, "$", got.CurrencySymbol)
	assert.False(t, got.VibrationEnabled)

	rr = env.do(t, http.MethodPut, "/api/settings", `{"currencyCode":"XYZ1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/setup", `{"cash":"50","bank":"0"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[settingsDTO](t, rr).SetupDone)

	rr = env.do(t, http.MethodGet, "/api/balance", "")
	assert.Equal(t, "50", decode[amountDTO](t, rr).Amount)

	// A second setup changes nothing.
	rr = env.do(t, http.MethodPost, "/api/setup", `{"cash":"50"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodGet, "/api/balance", "")
	assert.Equal(t, "50", decode[amountDTO](t, rr).Amount)
}

func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestLiveBalanceStream(t *testing.T) {
	env := newTestServer(t)
	ts := httptest.NewServer(env.srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/live/balance", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	assert.JSONEq(t, `{"amount":"0"}`, readEvent(t, body))

	_, err = env.ledger.AddTransaction(context.Background(), core.Transaction{
		AccountID:  1,
		Direction:  core.Credit,
		Amount:     decimal.NewFromInt(10),
		OccurredAt: fixedNow,
		LegacyKind: core.LegacyCash,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"10"}`, readEvent(t, body))
}

func TestLiveUnknownView(t *testing.T) {
	env := newTestServer(t)

	rr := env.do(t, http.MethodGet, "/api/live/nothing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/live/account-balance", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.ValidationError{Field: "amount", Err: core.ErrNegativeAmount}, http.StatusBadRequest},
		{&core.NotFoundError{Entity: core.EntityAccount, ID: 1}, http.StatusNotFound},
		{&core.MalformedBackupError{Reason: "bad"}, http.StatusUnprocessableEntity},
		{&core.StorageError{Op: "x", Err: context.DeadlineExceeded}, http.StatusInternalServerError},
		{&core.MalformedBackupError{Reason: "invalid JSON", Err: &http.MaxBytesError{Limit: 10}}, http.StatusRequestEntityTooLarge},
		{&core.ValidationError{Field: "body", Err: &http.MaxBytesError{Limit: 10}}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestAmountInput(t *testing.T) {
	var req struct {
		A amountInput `json:"a"`
		B amountInput `json:"b"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader([]byte(`{"a":"1,5","b":2.25}`))).Decode(&req))

	a, err := req.A.decimal("a")
	require.NoError(t, err)
	assert.Equal(t, "1.5", a.String())
	b, err := req.B.decimal("b")
	require.NoError(t, err)
	assert.Equal(t, "2.25", b.String())
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.stop()

	assert.True(t, rl.allow("1.2.3.4", fixedNow))
	assert.True(t, rl.allow("1.2.3.4", fixedNow))
	assert.False(t, rl.allow("1.2.3.4", fixedNow))
	assert.True(t, rl.allow("5.6.7.8", fixedNow))
	assert.True(t, rl.allow("1.2.3.4", fixedNow.Add(2*time.Minute)))

	rl.cleanupStaleEntries(fixedNow.Add(time.Hour))
	assert.Empty(t, rl.clients)

	h := rl.limitMutations(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}
