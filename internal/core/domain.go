package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Base    Currency = "UZS"
	Foreign Currency = "USD"
)

type (
	// Currency tags an amount as either the base or the foreign currency.
	Currency string

	Sale struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Quantity  int             `json:"qty"`
		BuyPrice  decimal.Decimal `json:"buyPrice"`
		SellPrice decimal.Decimal `json:"sellPrice"`
		Currency  Currency        `json:"currency"`
		CreatedAt time.Time       `json:"time"`
	}

	Expense struct {
		ID        string          `json:"id"`
		Note      string          `json:"note"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  Currency        `json:"currency"`
		CreatedAt time.Time       `json:"time"`
	}

	// SaleInput carries the raw form values of a sale submission.
	SaleInput struct {
		Name      string
		Quantity  string
		BuyPrice  string
		SellPrice string
		Currency  string
	}

	// ExpenseInput carries the raw form values of an expense submission.
	ExpenseInput struct {
		Note     string
		Amount   string
		Currency string
	}

	// Ledger is the session state: both record lists (newest first), the
	// exchange rate and the display currency.
	Ledger struct {
		Sales    []Sale
		Expenses []Expense
		Rate     decimal.Decimal
		Display  Currency
	}

	// Confirmation is an already-confirmed intent to delete the record with
	// the given id. Only Confirm produces one.
	Confirmation struct {
		id string
	}
)

var (
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyNote     = errors.New("empty note")
	ErrInvalidAmount = errors.New("invalid amount")
)

// ValidationError reports a submission rejected before any record was built.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ParseCurrency maps user input to a Currency. Anything that is not
// recognisably the foreign currency is the base currency.
func ParseCurrency(s string) Currency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usd", "$", "foreign":
		return Foreign
	default:
		return Base
	}
}

func (c Currency) IsForeign() bool { return c == Foreign }

func (c *Currency) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = ParseCurrency(s)
	return nil
}

// Validate parses the input and builds a sale. Quantity falls back to 1 and
// buy price to 0; name and a positive sell price are required.
func (in SaleInput) Validate(id string, now time.Time) (Sale, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Sale{}, &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	sell := ParseLenientNumber(in.SellPrice)
	if !sell.IsPositive() {
		return Sale{}, &ValidationError{Field: "sellPrice", Err: ErrInvalidAmount}
	}
	buy := ParseLenientNumber(in.BuyPrice)
	if buy.IsNegative() {
		buy = decimal.Zero
	}
	return Sale{
		ID:        id,
		Name:      name,
		Quantity:  parseQuantity(in.Quantity),
		BuyPrice:  buy,
		SellPrice: sell,
		Currency:  ParseCurrency(in.Currency),
		CreatedAt: now,
	}, nil
}

// Validate parses the input and builds an expense.
func (in ExpenseInput) Validate(id string, now time.Time) (Expense, error) {
	note := strings.TrimSpace(in.Note)
	if note == "" {
		return Expense{}, &ValidationError{Field: "note", Err: ErrEmptyNote}
	}
	amount := ParseLenientNumber(in.Amount)
	if !amount.IsPositive() {
		return Expense{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return Expense{
		ID:        id,
		Note:      note,
		Amount:    amount,
		Currency:  ParseCurrency(in.Currency),
		CreatedAt: now,
	}, nil
}

// Revenue is the sale's contribution to income, in the base currency.
func (s Sale) Revenue(rate decimal.Decimal) decimal.Decimal {
	return Normalize(s.SellPrice, s.Currency, rate).Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// Cost is the sale's contribution to total cost, in the base currency.
func (s Sale) Cost(rate decimal.Decimal) decimal.Decimal {
	return Normalize(s.BuyPrice, s.Currency, rate).Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// Base returns the expense amount in the base currency.
func (e Expense) Base(rate decimal.Decimal) decimal.Decimal {
	return Normalize(e.Amount, e.Currency, rate)
}

// Clone returns a copy whose slices do not alias l.
func (l Ledger) Clone() Ledger {
	out := l
	out.Sales = make([]Sale, len(l.Sales))
	copy(out.Sales, l.Sales)
	out.Expenses = make([]Expense, len(l.Expenses))
	copy(out.Expenses, l.Expenses)
	return out
}

func Confirm(id string) Confirmation { return Confirmation{id: id} }

func (c Confirmation) ID() string { return c.id }

// NewID returns a time-ordered identifier: a millisecond timestamp followed
// by random bits. Collisions are unlikely but not detected.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func parseQuantity(s string) int {
	q := ParseLenientNumber(s).Truncate(0)
	if q.LessThan(decimal.NewFromInt(1)) {
		return 1
	}
	if !q.LessThanOrEqual(decimal.NewFromInt(maxQuantity)) {
		return maxQuantity
	}
	return int(q.IntPart())
}

// Quantities above this are capped.
const maxQuantity = 1<<31 - 1
