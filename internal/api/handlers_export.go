package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/export"
)

func (s *Server) handleExportTable(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	t, ok := s.session.Table(tableID)
	if !ok {
		jsonError(w, "table not found", http.StatusNotFound)
		return
	}
	s.writeExport(w, r, export.FromTable(t), tableID)
}

func (s *Server) handleExportForms(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, export.FromForms(s.session.Forms()), "forms")
}

func (s *Server) handleExportCheckboxes(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, export.FromCheckboxes(s.session.Checkboxes()), "checkboxes")
}

// writeExport renders g as a download. The body is buffered so a render
// failure can still become a JSON error.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, g export.Grid, subject string) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, g, format); err != nil {
		s.log.Error("render export", "subject", subject, "error", err)
		jsonError(w, "failed to render export", http.StatusInternalServerError)
		return
	}

	docName := ""
	if doc, ok := s.session.Active(); ok {
		docName = doc.Name
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(docName, subject, format)))
	w.Write(buf.Bytes())
}
