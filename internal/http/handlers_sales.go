package http

import (
	"net/http"
)

const saleNotice = "Enter the product name and sell price"

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.salesOf(s.ledger.Snapshot()))
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid request format"})
		return
	}

	sale, err := s.ledger.AddSale(r.Context(), parseSaleInput(r))
	if err != nil {
		s.writeError(w, r, err, saleNotice)
		return
	}

	l := s.ledger.Snapshot()
	writeJSON(w, http.StatusCreated, saleView{Sale: sale, Total: s.amount(sale.Revenue(l.Rate), l)})
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	c, ok := confirmation(r)
	if !ok {
		writeJSON(w, http.StatusPreconditionRequired, errorView{Error: "deletion must be confirmed"})
		return
	}

	removed, err := s.ledger.RemoveSale(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
