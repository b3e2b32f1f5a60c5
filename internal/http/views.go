package http

import (
	"github.com/shopspring/decimal"

	"dokon/internal/core"
)

// amountView pairs a base-currency amount with its display string.
type amountView struct {
	Base      decimal.Decimal `json:"base"`
	Formatted string          `json:"formatted"`
}

type summaryView struct {
	Display      core.Currency   `json:"display"`
	Rate         decimal.Decimal `json:"rate"`
	Income       amountView      `json:"income"`
	TotalCost    amountView      `json:"totalCost"`
	ExpenseTotal amountView      `json:"expenseTotal"`
	GrossProfit  amountView      `json:"grossProfit"`
	Profit       amountView      `json:"profit"`
	SaleCount    int             `json:"saleCount"`
	ExpenseCount int             `json:"expenseCount"`
}

type saleView struct {
	core.Sale
	Total amountView `json:"total"`
}

type expenseView struct {
	core.Expense
	Total amountView `json:"total"`
}

type ledgerView struct {
	Sales    []saleView    `json:"sales"`
	Expenses []expenseView `json:"expenses"`
	Summary  summaryView   `json:"summary"`
}

type errorView struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) amount(base decimal.Decimal, l core.Ledger) amountView {
	return amountView{Base: base, Formatted: s.formatter.Format(base, l.Display, l.Rate)}
}

func (s *Server) summaryOf(l core.Ledger) summaryView {
	sum := core.Aggregate(l)
	return summaryView{
		Display:      l.Display,
		Rate:         l.Rate,
		Income:       s.amount(sum.Income, l),
		TotalCost:    s.amount(sum.TotalCost, l),
		ExpenseTotal: s.amount(sum.ExpenseTotal, l),
		GrossProfit:  s.amount(sum.GrossProfit, l),
		Profit:       s.amount(sum.Profit, l),
		SaleCount:    sum.SaleCount,
		ExpenseCount: sum.ExpenseCount,
	}
}

func (s *Server) salesOf(l core.Ledger) []saleView {
	out := make([]saleView, 0, len(l.Sales))
	for _, sale := range l.Sales {
		out = append(out, saleView{Sale: sale, Total: s.amount(sale.Revenue(l.Rate), l)})
	}
	return out
}

func (s *Server) expensesOf(l core.Ledger) []expenseView {
	out := make([]expenseView, 0, len(l.Expenses))
	for _, e := range l.Expenses {
		out = append(out, expenseView{Expense: e, Total: s.amount(e.Base(l.Rate), l)})
	}
	return out
}
