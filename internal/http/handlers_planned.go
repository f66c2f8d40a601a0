package http

import (
	"net/http"

	"cashbook/internal/core"
	"cashbook/internal/live"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListPlanned(w http.ResponseWriter, r *http.Request) {
	items, err := live.Once(s.ledger.PlannedItems(r.Context()))
	if err != nil {
		writeError(w, r, "list planned items", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlannedItemDTOs(items))
}

// handlePlannedByKind lists pending items of one kind.
func (s *Server) handlePlannedByKind(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParsePlannedKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, "planned by kind", &core.ValidationError{Field: "kind", Err: err})
		return
	}
	items, err := live.Once(s.ledger.PlannedByKind(r.Context(), kind))
	if err != nil {
		writeError(w, r, "planned by kind", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlannedItemDTOs(items))
}

// handlePlannedDue lists pending items due at or before ?before=.
func (s *Server) handlePlannedDue(w http.ResponseWriter, r *http.Request) {
	before, err := queryTime(r, "before", s.loc)
	if err != nil {
		writeError(w, r, "planned due", err)
		return
	}
	items, err := live.Once(s.ledger.PlannedDueBefore(r.Context(), before))
	if err != nil {
		writeError(w, r, "planned due", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlannedItemDTOs(items))
}

func (s *Server) handleCreatePlanned(w http.ResponseWriter, r *http.Request) {
	var req plannedItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create planned item", err)
		return
	}
	p, err := req.plannedItem()
	if err != nil {
		writeError(w, r, "create planned item", err)
		return
	}
	id, err := s.ledger.AddPlannedItem(r.Context(), p)
	if err != nil {
		writeError(w, r, "create planned item", err)
		return
	}
	writeJSON(w, http.StatusCreated, idDTO{ID: id})
}

func (s *Server) handleCompletePlanned(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "complete planned item", err)
		return
	}
	if err := s.ledger.MarkPlannedItemCompleted(r.Context(), id); err != nil {
		writeError(w, r, "complete planned item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPlanned(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get planned item", err)
		return
	}
	p, err := s.ledger.PlannedItem(r.Context(), id)
	if err != nil {
		writeError(w, r, "get planned item", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlannedItemDTO(p))
}

func (s *Server) handleDeletePlanned(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete planned item", err)
		return
	}
	if err := s.ledger.DeletePlannedItem(r.Context(), id); err != nil {
		writeError(w, r, "delete planned item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
