package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"dokon/internal/core"
	"dokon/internal/ledger"
	"dokon/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps ledger errors onto status codes. notice is the message
// shown to the user for a rejected submission.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, notice string) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorView{Error: notice, Field: ve.Field})
	case errors.Is(err, ledger.ErrStoreFailed):
		writeJSON(w, http.StatusServiceUnavailable, errorView{Error: "storage unavailable, restart required"})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorView{Error: "could not save changes"})
	}
}
