package http

import (
	"net/http"
)

const expenseNotice = "Enter a note and amount"

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.expensesOf(s.ledger.Snapshot()))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid request format"})
		return
	}

	expense, err := s.ledger.AddExpense(r.Context(), parseExpenseInput(r))
	if err != nil {
		s.writeError(w, r, err, expenseNotice)
		return
	}

	l := s.ledger.Snapshot()
	writeJSON(w, http.StatusCreated, expenseView{Expense: expense, Total: s.amount(expense.Base(l.Rate), l)})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	c, ok := confirmation(r)
	if !ok {
		writeJSON(w, http.StatusPreconditionRequired, errorView{Error: "deletion must be confirmed"})
		return
	}

	removed, err := s.ledger.RemoveExpense(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
