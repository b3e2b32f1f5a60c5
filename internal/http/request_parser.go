package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"dokon/internal/core"
)

// parseSaleInput reads a sale submission from form values.
func parseSaleInput(r *http.Request) core.SaleInput {
	return core.SaleInput{
		Name:      sanitizeInput(r.FormValue("name")),
		Quantity:  strings.TrimSpace(r.FormValue("qty")),
		BuyPrice:  strings.TrimSpace(r.FormValue("buyPrice")),
		SellPrice: strings.TrimSpace(r.FormValue("sellPrice")),
		Currency:  r.FormValue("currency"),
	}
}

// parseExpenseInput reads an expense submission from form values.
func parseExpenseInput(r *http.Request) core.ExpenseInput {
	return core.ExpenseInput{
		Note:     sanitizeInput(r.FormValue("note")),
		Amount:   strings.TrimSpace(r.FormValue("amount")),
		Currency: r.FormValue("currency"),
	}
}

// confirmation returns the delete intent for the {id} route parameter, or
// false when the caller has not confirmed it with confirm=true.
func confirmation(r *http.Request) (core.Confirmation, bool) {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err != nil || !ok {
		return core.Confirmation{}, false
	}
	return core.Confirm(chi.URLParam(r, "id")), true
}

// displayParam returns the display currency requested in the query, if any.
func displayParam(r *http.Request) (core.Currency, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("display"))
	if v == "" {
		return "", false
	}
	return core.ParseCurrency(v), true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
