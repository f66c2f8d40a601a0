package http

import (
	"net/http"
	"strings"

	"cashbook/internal/core"
	"cashbook/internal/live"

	"github.com/go-chi/chi/v5"
)

const defaultRecentCount = 10

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := live.Once(s.ledger.Transactions(r.Context()))
	if err != nil {
		writeError(w, r, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get transaction", err)
		return
	}
	t, err := s.ledger.Transaction(r.Context(), id)
	if err != nil {
		writeError(w, r, "get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", defaultRecentCount)
	if err != nil {
		writeError(w, r, "recent transactions", err)
		return
	}
	txs, err := live.Once(s.ledger.RecentTransactions(r.Context(), n))
	if err != nil {
		writeError(w, r, "recent transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (s *Server) handleTransactionsBetween(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from", s.loc)
	if err != nil {
		writeError(w, r, "transactions between", err)
		return
	}
	to, err := queryRangeEnd(r, "to", s.loc)
	if err != nil {
		writeError(w, r, "transactions between", err)
		return
	}
	txs, err := s.ledger.TransactionsBetween(r.Context(), from, to)
	if err != nil {
		writeError(w, r, "transactions between", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (s *Server) handleOrphanedTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := live.Once(s.ledger.OrphanedTransactions(r.Context()))
	if err != nil {
		writeError(w, r, "orphaned transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// handleCreateTransaction records a transaction on an existing account. The
// time defaults to now and the legacy kind to the one implied by the
// account kind.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create transaction", err)
		return
	}
	t, err := s.transactionFromRequest(r, req)
	if err != nil {
		writeError(w, r, "create transaction", err)
		return
	}
	id, err := s.ledger.AddTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, "create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, idDTO{ID: id})
}

func (s *Server) transactionFromRequest(r *http.Request, req transactionRequest) (core.Transaction, error) {
	if req.AccountID <= 0 {
		return core.Transaction{}, &core.ValidationError{Field: "accountId", Err: core.ErrInvalidID}
	}
	direction, err := core.ParseDirection(req.Direction)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "direction", Err: err}
	}
	amount, err := req.Amount.decimal("amount")
	if err != nil {
		return core.Transaction{}, err
	}
	account, err := s.ledger.Account(r.Context(), req.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}
	legacy := core.LegacyKindFor(account.Kind)
	if req.LegacyKind != "" {
		if legacy, err = core.ParseLegacyKind(req.LegacyKind); err != nil {
			return core.Transaction{}, &core.ValidationError{Field: "legacyKind", Err: err}
		}
	}
	occurredAt := s.now()
	if req.OccurredAt != nil {
		occurredAt = core.FromMillis(*req.OccurredAt)
	}
	return core.Transaction{
		AccountID:   account.ID,
		Direction:   direction,
		Amount:      amount,
		OccurredAt:  occurredAt,
		Description: strings.TrimSpace(req.Description),
		LegacyKind:  legacy,
	}, nil
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete transaction", err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTotalBalance(w http.ResponseWriter, r *http.Request) {
	total, err := live.Once(s.ledger.TotalBalance(r.Context()))
	if err != nil {
		writeError(w, r, "total balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountDTO(total))
}

func (s *Server) handleLegacyBalance(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseLegacyKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, "legacy balance", &core.ValidationError{Field: "kind", Err: err})
		return
	}
	balance, err := live.Once(s.ledger.LegacyBalance(r.Context(), kind))
	if err != nil {
		writeError(w, r, "legacy balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountDTO(balance))
}
