package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/live"
	"cashbook/internal/log"

	"github.com/go-chi/chi/v5"
)

const keepAliveInterval = 25 * time.Second

// handleLive streams a live view as Server-Sent Events. The first event is
// the current value; each later event is the newest value after a change.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := chi.URLParam(r, "view")

	switch view {
	case "accounts":
		sub, err := s.ledger.Accounts(ctx)
		stream(w, r, view, sub, err, toAccountDTOs)
	case "account-stats":
		sub, err := s.ledger.AccountsWithStats(ctx)
		stream(w, r, view, sub, err, toAccountStatsDTOs)
	case "transactions":
		sub, err := s.ledger.Transactions(ctx)
		stream(w, r, view, sub, err, toTransactionDTOs)
	case "recent":
		n, err := queryInt(r, "n", defaultRecentCount)
		if err != nil {
			writeError(w, r, "live "+view, err)
			return
		}
		sub, err := s.ledger.RecentTransactions(ctx, n)
		stream(w, r, view, sub, err, toTransactionDTOs)
	case "orphaned":
		sub, err := s.ledger.OrphanedTransactions(ctx)
		stream(w, r, view, sub, err, toTransactionDTOs)
	case "balance":
		sub, err := s.ledger.TotalBalance(ctx)
		stream(w, r, view, sub, err, toAmountDTO)
	case "account-balance", "account-transactions":
		id, err := queryAccountID(r)
		if err != nil {
			writeError(w, r, "live "+view, err)
			return
		}
		if view == "account-balance" {
			sub, err := s.ledger.AccountBalance(ctx, id)
			stream(w, r, view, sub, err, toAmountDTO)
			return
		}
		sub, err := s.ledger.TransactionsByAccount(ctx, id)
		stream(w, r, view, sub, err, toTransactionDTOs)
	case "planned":
		sub, err := s.ledger.PlannedItems(ctx)
		stream(w, r, view, sub, err, toPlannedItemDTOs)
	case "planned-due":
		before, err := queryTime(r, "before", s.loc)
		if err != nil {
			writeError(w, r, "live "+view, err)
			return
		}
		sub, err := s.ledger.PlannedDueBefore(ctx, before)
		stream(w, r, view, sub, err, toPlannedItemDTOs)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown view %q", view)})
	}
}

func queryAccountID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get("account"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "account", Err: core.ErrInvalidID}
	}
	return id, nil
}

// stream writes every value of sub as an SSE event until the client goes
// away. It owns sub and closes it.
func stream[T, D any](w http.ResponseWriter, r *http.Request, view string, sub *live.Subscription[T], err error, render func(T) D) {
	if err != nil {
		writeError(w, r, "live "+view, err)
		return
	}
	defer sub.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	logger := log.FromContext(r.Context())
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	logger.DebugContext(r.Context(), "Live stream opened", log.FieldView, view)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.DebugContext(r.Context(), "Live stream closed", log.FieldView, view)
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v, ok := <-sub.Updates():
			if !ok {
				return
			}
			data, err := json.Marshal(render(v))
			if err != nil {
				logger.ErrorContext(r.Context(), "Encode live value failed", log.FieldView, view, log.FieldError, err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", view, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
