package http

import (
	"net/http"

	"cashbook/internal/live"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := live.Once(s.ledger.Accounts(r.Context()))
	if err != nil {
		writeError(w, r, "list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTOs(accounts))
}

func (s *Server) handleAccountStats(w http.ResponseWriter, r *http.Request) {
	stats, err := live.Once(s.ledger.AccountsWithStats(r.Context()))
	if err != nil {
		writeError(w, r, "account stats", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountStatsDTOs(stats))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get account", err)
		return
	}
	a, err := s.ledger.Account(r.Context(), id)
	if err != nil {
		writeError(w, r, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create account", err)
		return
	}
	a, err := req.account(0)
	if err != nil {
		writeError(w, r, "create account", err)
		return
	}
	id, err := s.ledger.AddAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, "create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, idDTO{ID: id})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "update account", err)
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update account", err)
		return
	}
	a, err := req.account(id)
	if err != nil {
		writeError(w, r, "update account", err)
		return
	}
	if err := s.ledger.UpdateAccount(r.Context(), a); err != nil {
		writeError(w, r, "update account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete account", err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "account balance", err)
		return
	}
	balance, err := live.Once(s.ledger.AccountBalance(r.Context(), id))
	if err != nil {
		writeError(w, r, "account balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountDTO(balance))
}

func (s *Server) handleAccountTotals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "account totals", err)
		return
	}
	totals, err := live.Once(s.ledger.AccountTotals(r.Context(), id))
	if err != nil {
		writeError(w, r, "account totals", err)
		return
	}
	writeJSON(w, http.StatusOK, toTotalsDTO(totals))
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "account transactions", err)
		return
	}
	txs, err := live.Once(s.ledger.TransactionsByAccount(r.Context(), id))
	if err != nil {
		writeError(w, r, "account transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}
