package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cashbook/internal/core"
	"cashbook/internal/log"

	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type accountDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type accountStatsDTO struct {
	accountDTO
	TotalCredit string `json:"totalCredit"`
	TotalDebit  string `json:"totalDebit"`
	Balance     string `json:"balance"`
}

type transactionDTO struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	OccurredAt  int64  `json:"occurredAt"`
	Description string `json:"description"`
	LegacyKind  string `json:"legacyKind"`
}

type plannedItemDTO struct {
	ID               int64  `json:"id"`
	Kind             string `json:"kind"`
	Amount           string `json:"amount"`
	DueAt            int64  `json:"dueAt"`
	Description      string `json:"description"`
	SourceAccountTag string `json:"sourceAccountTag"`
	Status           string `json:"status"`
}

type totalsDTO struct {
	Credit  string `json:"credit"`
	Debit   string `json:"debit"`
	Balance string `json:"balance"`
}

type amountDTO struct {
	Amount string `json:"amount"`
}

type idDTO struct {
	ID int64 `json:"id"`
}

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{ID: a.ID, Name: a.Name, Kind: string(a.Kind)}
}

func toAccountDTOs(accounts []core.Account) []accountDTO {
	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	return out
}

func toAccountStatsDTOs(stats []core.AccountStats) []accountStatsDTO {
	out := make([]accountStatsDTO, 0, len(stats))
	for _, s := range stats {
		out = append(out, accountStatsDTO{
			accountDTO:  toAccountDTO(s.Account),
			TotalCredit: s.TotalCredit.String(),
			TotalDebit:  s.TotalDebit.String(),
			Balance:     s.Balance().String(),
		})
	}
	return out
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Direction:   string(t.Direction),
		Amount:      t.Amount.String(),
		OccurredAt:  t.OccurredAt.UnixMilli(),
		Description: t.Description,
		LegacyKind:  string(t.LegacyKind),
	}
}

func toTransactionDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionDTO(t))
	}
	return out
}

func toPlannedItemDTO(p core.PlannedItem) plannedItemDTO {
	return plannedItemDTO{
		ID:               p.ID,
		Kind:             string(p.Kind),
		Amount:           p.Amount.String(),
		DueAt:            p.DueAt.UnixMilli(),
		Description:      p.Description,
		SourceAccountTag: string(p.SourceAccountTag),
		Status:           string(p.Status),
	}
}

func toPlannedItemDTOs(items []core.PlannedItem) []plannedItemDTO {
	out := make([]plannedItemDTO, 0, len(items))
	for _, p := range items {
		out = append(out, toPlannedItemDTO(p))
	}
	return out
}

func toTotalsDTO(t core.Totals) totalsDTO {
	return totalsDTO{Credit: t.Credit.String(), Debit: t.Debit.String(), Balance: t.Balance().String()}
}

func toAmountDTO(d decimal.Decimal) amountDTO {
	return amountDTO{Amount: d.String()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *core.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMalformedBackup), errors.Is(err, core.ErrUnsupportedVersion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Server-side failures are logged and
// their details withheld.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op, log.FieldError, err)
		resp = errorResponse{Error: "internal error"}
	}
	writeJSON(w, status, resp)
}
