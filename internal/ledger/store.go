// Package ledger owns the session ledger: it validates submissions, keeps
// both record lists newest first and writes every change straight through to
// a kv.Store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dokon/internal/core"
	"dokon/internal/kv"
	"dokon/internal/log"
)

// Persisted keys.
const (
	KeySales    = "products"
	KeyExpenses = "expenses"
	KeyRate     = "rate"
)

var (
	// ErrPersistence wraps the first write that failed.
	ErrPersistence = errors.New("ledger: persist failed")
	// ErrStoreFailed is returned by every mutation after a failed write.
	ErrStoreFailed = errors.New("ledger: store unusable after failed write")
)

// Options tune Open. Zero values pick the defaults.
type Options struct {
	DefaultRate decimal.Decimal
	Logger      *log.Logger
	Now         func() time.Time
	NewID       func() string
}

// Store is the single owner of the ledger state. Every operation runs to
// completion under one lock, so callers on several goroutines still see one
// action at a time.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	state  core.Ledger
	failed error
}

// Open loads the persisted ledger from store. Missing keys start empty;
// values that no longer decode are logged and ignored, record by record for
// the sale and expense lists.
func Open(ctx context.Context, store kv.Store, opts Options) (*Store, error) {
	s := &Store{
		kv:     store,
		logger: opts.Logger,
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = core.NewID
	}

	rate := opts.DefaultRate
	if rate.IsZero() {
		rate = core.DefaultRate
	}
	s.state = core.Ledger{
		Sales:    []core.Sale{},
		Expenses: []core.Expense{},
		Rate:     core.ClampRate(rate),
		Display:  core.Base,
	}

	if err := loadList(ctx, s, KeySales, &s.state.Sales); err != nil {
		return nil, err
	}
	if err := loadList(ctx, s, KeyExpenses, &s.state.Expenses); err != nil {
		return nil, err
	}
	if err := load(ctx, s, KeyRate, &s.state.Rate); err != nil {
		return nil, err
	}
	// a stored null decodes to nil
	if s.state.Sales == nil {
		s.state.Sales = []core.Sale{}
	}
	if s.state.Expenses == nil {
		s.state.Expenses = []core.Expense{}
	}
	s.state.Rate = core.ClampRate(s.state.Rate)

	s.logger.InfoContext(ctx, "Ledger loaded",
		"sales", len(s.state.Sales),
		"expenses", len(s.state.Expenses),
		log.FieldRate, s.state.Rate.String())

	return s, nil
}

// load decodes key into dst, leaving dst untouched when the key is absent
// or its value is unreadable.
func load[T any](ctx context.Context, s *Store, key string, dst *T) error {
	b, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}

	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		fields := log.NewFields().WithOperation(log.OpLoad).WithError(err)
		fields[log.FieldKey] = key
		s.logger.WarnContext(ctx, "Ignoring undecodable persisted value", fields.ToSlice()...)
		return nil
	}
	*dst = out
	return nil
}

// loadList decodes the array under key one record at a time, skipping the
// records that do not decode.
func loadList[T any](ctx context.Context, s *Store, key string, dst *[]T) error {
	var raws []json.RawMessage
	if err := load(ctx, s, key, &raws); err != nil {
		return err
	}
	if raws == nil {
		return nil
	}

	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			fields := log.NewFields().WithOperation(log.OpLoad).WithError(err)
			fields[log.FieldKey] = key
			fields[log.FieldIndex] = i
			s.logger.WarnContext(ctx, "Skipping undecodable persisted record", fields.ToSlice()...)
			continue
		}
		out = append(out, v)
	}
	*dst = out
	return nil
}

// AddSale validates in, prepends the new sale and persists the sale list.
// A *core.ValidationError leaves the ledger unchanged.
func (s *Store) AddSale(ctx context.Context, in core.SaleInput) (core.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return core.Sale{}, err
	}
	sale, err := in.Validate(s.newID(), s.now())
	if err != nil {
		return core.Sale{}, err
	}

	s.state.Sales = append([]core.Sale{sale}, s.state.Sales...)
	if err := s.persist(ctx, KeySales, s.state.Sales); err != nil {
		return sale, err
	}

	s.logger.InfoContext(ctx, "Sale added", log.NewFields().
		WithSale(sale.ID, sale.Name, sale.Quantity, sale.SellPrice.String(), string(sale.Currency)).
		WithOperation(log.OpCreate).
		ToSlice()...)
	return sale, nil
}

// AddExpense validates in, prepends the new expense and persists the
// expense list.
func (s *Store) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return core.Expense{}, err
	}
	expense, err := in.Validate(s.newID(), s.now())
	if err != nil {
		return core.Expense{}, err
	}

	s.state.Expenses = append([]core.Expense{expense}, s.state.Expenses...)
	if err := s.persist(ctx, KeyExpenses, s.state.Expenses); err != nil {
		return expense, err
	}

	s.logger.InfoContext(ctx, "Expense added", log.NewFields().
		WithExpense(expense.ID, expense.Note, expense.Amount.String(), string(expense.Currency)).
		WithOperation(log.OpCreate).
		ToSlice()...)
	return expense, nil
}

// RemoveSale deletes the first sale with the confirmed id. It reports
// whether a record was removed; an unknown id writes nothing.
func (s *Store) RemoveSale(ctx context.Context, c core.Confirmation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return false, err
	}
	i := slices.IndexFunc(s.state.Sales, func(x core.Sale) bool { return x.ID == c.ID() })
	if i < 0 {
		return false, nil
	}

	s.state.Sales = slices.Delete(s.state.Sales, i, i+1)
	if err := s.persist(ctx, KeySales, s.state.Sales); err != nil {
		return true, err
	}

	s.logger.InfoContext(ctx, "Sale removed", log.FieldSaleID, c.ID(), log.FieldOperation, log.OpDelete)
	return true, nil
}

// RemoveExpense deletes the first expense with the confirmed id.
func (s *Store) RemoveExpense(ctx context.Context, c core.Confirmation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return false, err
	}
	i := slices.IndexFunc(s.state.Expenses, func(x core.Expense) bool { return x.ID == c.ID() })
	if i < 0 {
		return false, nil
	}

	s.state.Expenses = slices.Delete(s.state.Expenses, i, i+1)
	if err := s.persist(ctx, KeyExpenses, s.state.Expenses); err != nil {
		return true, err
	}

	s.logger.InfoContext(ctx, "Expense removed", log.FieldExpenseID, c.ID(), log.FieldOperation, log.OpDelete)
	return true, nil
}

// SetExchangeRate stores rate, clamped to at least 1, and returns the value
// actually stored.
func (s *Store) SetExchangeRate(ctx context.Context, rate decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return s.state.Rate, err
	}
	s.state.Rate = core.ClampRate(rate)
	if err := s.persist(ctx, KeyRate, s.state.Rate); err != nil {
		return s.state.Rate, err
	}

	s.logger.InfoContext(ctx, "Exchange rate set", log.FieldRate, s.state.Rate.String(), log.FieldOperation, log.OpSetRate)
	return s.state.Rate, nil
}

// SetDisplayCurrency switches the currency totals are shown in. It is
// session state and never persisted.
func (s *Store) SetDisplayCurrency(c core.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Display = c
}

// Snapshot returns a copy of the current ledger.
func (s *Store) Snapshot() core.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Summary aggregates the current ledger.
func (s *Store) Summary() core.Summary {
	return core.Aggregate(s.Snapshot())
}

// Err returns the write failure that made the store read-only, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *Store) usable() error {
	if s.failed != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, s.failed)
	}
	return nil
}

// persist writes v under key. The first failure is reported once and marks
// the store failed; the in-memory change is kept.
func (s *Store) persist(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err == nil {
		err = s.kv.Set(ctx, key, b)
	}
	if err != nil {
		s.failed = err
		s.logger.ErrorContext(ctx, "Failed to persist ledger, further changes are refused",
			log.NewFields().WithOperation(log.OpPersist).WithError(err).ToSlice()...)
		return fmt.Errorf("%w: %s: %w", ErrPersistence, key, err)
	}
	return nil
}
