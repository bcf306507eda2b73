package http

import (
	"net/http"
	"time"

	"budget/internal/export"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="budget-`+time.Now().UTC().Format("20060102")+`.json"`)

	if err := export.Write(r.Context(), s.store, w); err != nil {
		s.logger.ErrorContext(r.Context(), "Snapshot export failed", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode := export.ImportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = export.ModeMerge
	}

	result, err := export.Read(r.Context(), s.store, http.MaxBytesReader(w, r.Body, 32<<20), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":         string(mode),
		"transactions": result.Transactions,
		"templates":    result.Templates,
		"skipped":      result.Skipped,
	})
}
