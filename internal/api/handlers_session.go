package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/session"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/storage"
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID string `json:"doc_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocID == "" {
		jsonError(w, "doc_id is required", http.StatusBadRequest)
		return
	}

	doc, err := s.store.Get(req.DocID)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.session.Select(doc)
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	s.session.Deselect()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleParse runs extraction for the active document. A parser failure is
// reported verbatim with 502.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	_, err := s.session.EnsureParsed(r.Context())
	switch {
	case errors.Is(err, session.ErrNoActiveDocument):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, session.ErrSuperseded):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := s.session.SetPage(req.Page)
	switch {
	case errors.Is(err, session.ErrNotParsed):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, session.ErrPageOutOfRange):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"page": s.session.Page()})
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pages": s.session.Pages()})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": s.session.Tables()})
}

func (s *Server) handleForms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"forms": s.session.Forms()})
}

func (s *Server) handleCheckboxes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"checkboxes": s.session.Checkboxes()})
}

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"corpus": s.session.Corpus()})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	answer, err := s.session.Ask(r.Context(), req.Question)
	switch {
	case errors.Is(err, session.ErrEmptyQuestion):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, session.ErrNotParsed):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
