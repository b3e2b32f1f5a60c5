package http

import (
	"net/http"

	"dokon/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	l := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, ledgerView{
		Sales:    s.salesOf(l),
		Expenses: s.expensesOf(l),
		Summary:  s.summaryOf(l),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	l := s.ledger.Snapshot()
	if display, ok := displayParam(r); ok {
		l.Display = display
	}
	writeJSON(w, http.StatusOK, s.summaryOf(l))
}

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rate": s.ledger.Snapshot().Rate})
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid request format"})
		return
	}
	rate, err := s.ledger.SetExchangeRate(r.Context(), core.ParseLenientNumber(r.FormValue("rate")))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rate": rate})
}

func (s *Server) handleSetDisplay(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid request format"})
		return
	}
	s.ledger.SetDisplayCurrency(core.ParseCurrency(r.FormValue("currency")))
	writeJSON(w, http.StatusOK, s.summaryOf(s.ledger.Snapshot()))
}
