package core

import "github.com/shopspring/decimal"

// Summary holds the ledger aggregates, all in the base currency.
type Summary struct {
	Income       decimal.Decimal
	TotalCost    decimal.Decimal
	ExpenseTotal decimal.Decimal
	GrossProfit  decimal.Decimal // Income - TotalCost
	Profit       decimal.Decimal // Income - TotalCost - ExpenseTotal
	SaleCount    int
	ExpenseCount int
}

// Aggregate computes the totals of l at its own exchange rate.
func Aggregate(l Ledger) Summary {
	rate := ClampRate(l.Rate)
	s := Summary{
		Income:       decimal.Zero,
		TotalCost:    decimal.Zero,
		ExpenseTotal: decimal.Zero,
		SaleCount:    len(l.Sales),
		ExpenseCount: len(l.Expenses),
	}
	for _, sale := range l.Sales {
		s.Income = s.Income.Add(sale.Revenue(rate))
		s.TotalCost = s.TotalCost.Add(sale.Cost(rate))
	}
	for _, e := range l.Expenses {
		s.ExpenseTotal = s.ExpenseTotal.Add(e.Base(rate))
	}
	s.GrossProfit = s.Income.Sub(s.TotalCost)
	s.Profit = s.GrossProfit.Sub(s.ExpenseTotal)
	return s
}
