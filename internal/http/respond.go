package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/ledger"
	applog "budget/internal/log"
	"budget/internal/middleware/trace"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", trace.RequestID(r.Context()),
			"error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP status codes. Validation
// failures are the client's fault, duplicate occurrences are conflicts,
// anything unrecognized is a server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateOccurrence):
		return http.StatusConflict
	case errors.Is(err, export.ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrZeroAmount),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyPerson),
		errors.Is(err, core.ErrDateOutOfRange),
		errors.Is(err, core.ErrNoteTooLong),
		errors.Is(err, core.ErrEndBeforeStart),
		errors.Is(err, core.ErrBadInterval),
		errors.Is(err, core.ErrUnknownFrequency):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
