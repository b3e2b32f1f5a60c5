package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dokon/internal/core"
	"dokon/internal/kv"
	"dokon/internal/kv/memory"
	"dokon/internal/kv/sqlite"
	"dokon/internal/log"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func openStore(t *testing.T, store kv.Store) *Store {
	t.Helper()
	s, err := Open(context.Background(), store, Options{
		Logger: log.Discard(),
		Now:    func() time.Time { return fixedNow },
		NewID:  sequentialIDs(),
	})
	require.NoError(t, err)
	return s
}

// failingKV fails every Set once armed.
type failingKV struct {
	*memory.Store
	fail bool
	sets int
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func TestOpenEmptyUsesDefaults(t *testing.T) {
	s := openStore(t, memory.New())
	l := s.Snapshot()
	assert.Empty(t, l.Sales)
	assert.NotNil(t, l.Sales)
	assert.Empty(t, l.Expenses)
	assert.True(t, l.Rate.Equal(decimal.NewFromInt(12700)))
	assert.Equal(t, core.Base, l.Display)
}

func TestOpenCustomDefaultRate(t *testing.T) {
	s, err := Open(context.Background(), memory.New(), Options{
		Logger:      log.Discard(),
		DefaultRate: decimal.NewFromInt(12500),
	})
	require.NoError(t, err)
	assert.True(t, s.Snapshot().Rate.Equal(decimal.NewFromInt(12500)))
}

func TestAddSaleBreadScenario(t *testing.T) {
	mem := memory.New()
	s := openStore(t, mem)

	sale, err := s.AddSale(context.Background(), core.SaleInput{Name: "Bread", Quantity: "", BuyPrice: "", SellPrice: "5000"})
	require.NoError(t, err)
	assert.Equal(t, 1, sale.Quantity)
	assert.True(t, sale.BuyPrice.IsZero())
	assert.True(t, sale.SellPrice.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "id-1", sale.ID)
	assert.Equal(t, fixedNow, sale.CreatedAt)

	raw, err := mem.Get(context.Background(), KeySales)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"id-1","name":"Bread","qty":1,"buyPrice":0,"sellPrice":5000,"currency":"UZS","time":"2025-03-01T09:30:00Z"}]`, string(raw))
}

func TestAddPrependsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.AddSale(ctx, core.SaleInput{Name: name, SellPrice: "1"})
		require.NoError(t, err)
		_, err = s.AddExpense(ctx, core.ExpenseInput{Note: name, Amount: "1"})
		require.NoError(t, err)
	}

	l := s.Snapshot()
	require.Len(t, l.Sales, 3)
	require.Len(t, l.Expenses, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{l.Sales[0].Name, l.Sales[1].Name, l.Sales[2].Name})
	assert.Equal(t, []string{"c", "b", "a"}, []string{l.Expenses[0].Note, l.Expenses[1].Note, l.Expenses[2].Note})
}

func TestInvalidSubmissionsLeaveLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	kvs := &failingKV{Store: memory.New()}
	s := openStore(t, kvs)

	sales := []core.SaleInput{
		{Name: "", SellPrice: "10"},
		{Name: "  ", SellPrice: "10"},
		{Name: "x", SellPrice: ""},
		{Name: "x", SellPrice: "0"},
		{Name: "x", SellPrice: "-2"},
	}
	for _, in := range sales {
		_, err := s.AddSale(ctx, in)
		var ve *core.ValidationError
		assert.ErrorAs(t, err, &ve)
	}
	expenses := []core.ExpenseInput{
		{Note: "", Amount: "10"},
		{Note: "x", Amount: ""},
		{Note: "x", Amount: "0"},
		{Note: "x", Amount: "abc"},
	}
	for _, in := range expenses {
		_, err := s.AddExpense(ctx, in)
		var ve *core.ValidationError
		assert.ErrorAs(t, err, &ve)
	}

	l := s.Snapshot()
	assert.Empty(t, l.Sales)
	assert.Empty(t, l.Expenses)
	assert.Zero(t, kvs.sets, "rejected submissions must not write")
}

func TestRentScenario(t *testing.T) {
	s := openStore(t, memory.New())
	_, err := s.AddExpense(context.Background(), core.ExpenseInput{Note: "Rent", Amount: "200000"})
	require.NoError(t, err)

	sum := s.Summary()
	assert.True(t, sum.ExpenseTotal.Equal(decimal.NewFromInt(200000)), "got %s", sum.ExpenseTotal)
	assert.True(t, sum.Profit.Equal(decimal.NewFromInt(-200000)), "got %s", sum.Profit)
}

func TestForeignSaleScenario(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	_, err := s.SetExchangeRate(ctx, decimal.NewFromInt(12000))
	require.NoError(t, err)
	_, err = s.AddSale(ctx, core.SaleInput{Name: "Shoes", SellPrice: "10", Currency: "USD", Quantity: "2"})
	require.NoError(t, err)

	assert.True(t, s.Summary().Income.Equal(decimal.NewFromInt(240000)))
}

func TestSetExchangeRateClamps(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	s := openStore(t, mem)

	got, err := s.SetExchangeRate(ctx, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(1)))
	assert.True(t, s.Snapshot().Rate.Equal(decimal.NewFromInt(1)))

	raw, err := mem.Get(ctx, KeyRate)
	require.NoError(t, err)
	assert.Equal(t, "1", string(raw))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	kvs := &failingKV{Store: memory.New()}
	s := openStore(t, kvs)

	first, err := s.AddSale(ctx, core.SaleInput{Name: "a", SellPrice: "1"})
	require.NoError(t, err)
	_, err = s.AddSale(ctx, core.SaleInput{Name: "b", SellPrice: "1"})
	require.NoError(t, err)
	exp, err := s.AddExpense(ctx, core.ExpenseInput{Note: "n", Amount: "1"})
	require.NoError(t, err)

	setsBefore := kvs.sets
	removed, err := s.RemoveSale(ctx, core.Confirm("missing"))
	require.NoError(t, err)
	assert.False(t, removed)
	removed, err = s.RemoveExpense(ctx, core.Confirm("missing"))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, s.Snapshot().Sales, 2)
	assert.Len(t, s.Snapshot().Expenses, 1)
	assert.Equal(t, setsBefore, kvs.sets, "no-op removal must not write")

	removed, err = s.RemoveSale(ctx, core.Confirm(first.ID))
	require.NoError(t, err)
	assert.True(t, removed)
	l := s.Snapshot()
	require.Len(t, l.Sales, 1)
	assert.Equal(t, "b", l.Sales[0].Name)

	removed, err = s.RemoveExpense(ctx, core.Confirm(exp.ID))
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.Snapshot().Expenses)
}

func TestRemoveTakesOnlyFirstMatch(t *testing.T) {
	ctx := context.Background()
	ids := []string{"dup", "dup"}
	s, err := Open(ctx, memory.New(), Options{
		Logger: log.Discard(),
		NewID: func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		},
	})
	require.NoError(t, err)
	_, err = s.AddExpense(ctx, core.ExpenseInput{Note: "old", Amount: "1"})
	require.NoError(t, err)
	_, err = s.AddExpense(ctx, core.ExpenseInput{Note: "new", Amount: "1"})
	require.NoError(t, err)

	removed, err := s.RemoveExpense(ctx, core.Confirm("dup"))
	require.NoError(t, err)
	assert.True(t, removed)
	l := s.Snapshot()
	require.Len(t, l.Expenses, 1)
	assert.Equal(t, "old", l.Expenses[0].Note)
}

func TestRoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dokon.db")

	db, err := sqlite.Open(path, log.Discard())
	require.NoError(t, err)
	s := openStore(t, db)

	_, err = s.AddSale(ctx, core.SaleInput{Name: "Bread", SellPrice: "5000", BuyPrice: "3500", Quantity: "3"})
	require.NoError(t, err)
	_, err = s.AddSale(ctx, core.SaleInput{Name: "Shoes", SellPrice: "12.75", Currency: "USD"})
	require.NoError(t, err)
	_, err = s.AddExpense(ctx, core.ExpenseInput{Note: "Rent", Amount: "200000"})
	require.NoError(t, err)
	_, err = s.SetExchangeRate(ctx, decimal.NewFromInt(12100))
	require.NoError(t, err)
	before := s.Snapshot()
	require.NoError(t, db.Close())

	db, err = sqlite.Open(path, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	after := openStore(t, db).Snapshot()

	assertSameJSON(t, before.Sales, after.Sales)
	assertSameJSON(t, before.Expenses, after.Expenses)
	assert.True(t, before.Rate.Equal(after.Rate))
	assert.Equal(t, "Shoes", after.Sales[0].Name)
}

func TestOpenIgnoresUndecodableValues(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	require.NoError(t, mem.Set(ctx, KeySales, []byte(`{not json`)))
	require.NoError(t, mem.Set(ctx, KeyExpenses, []byte(`null`)))
	require.NoError(t, mem.Set(ctx, KeyRate, []byte(`0`)))

	l := openStore(t, mem).Snapshot()
	assert.NotNil(t, l.Sales)
	assert.Empty(t, l.Sales)
	assert.NotNil(t, l.Expenses)
	assert.True(t, l.Rate.Equal(decimal.NewFromInt(1)), "stored rate is clamped on load")
}

func TestOpenKeepsBrowserRecords(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	require.NoError(t, mem.Set(ctx, KeySales, []byte(`[
		{"id":1717171717171.4242,"name":"Bread","qty":2,"buyPrice":3000,"sellPrice":5000,"currency":"UZS","time":"2024-06-01T10:00:00.000Z"},
		{"id":1717171700000.17,"name":"Case","qty":1,"buyPrice":0,"sellPrice":10,"currency":"USD","time":"2024-06-01T09:00:00.000Z"},
		{"id":1717171600000.5,"name":"Broken","time":"yesterday"}
	]`)))
	require.NoError(t, mem.Set(ctx, KeyExpenses, []byte(`[
		{"id":1717171800000.9,"note":"Rent","amount":200000,"currency":"UZS","time":"2024-06-01T11:00:00.000Z"}
	]`)))
	require.NoError(t, mem.Set(ctx, KeyRate, []byte(`12000`)))

	s := openStore(t, mem)
	l := s.Snapshot()
	require.Len(t, l.Sales, 2, "only the undecodable record is skipped")
	require.Len(t, l.Expenses, 1)
	assert.Equal(t, "1717171717171.4242", l.Sales[0].ID)
	assert.Equal(t, 2, l.Sales[0].Quantity)
	assert.Equal(t, core.Foreign, l.Sales[1].Currency)
	assert.Equal(t, "1717171800000.9", l.Expenses[0].ID)

	sum := s.Summary()
	assert.True(t, sum.Income.Equal(decimal.NewFromInt(10000+120000)), "income %s", sum.Income)
	assert.True(t, sum.ExpenseTotal.Equal(decimal.NewFromInt(200000)))

	_, err := s.AddSale(ctx, core.SaleInput{Name: "Milk", SellPrice: "9000"})
	require.NoError(t, err)

	var persisted []core.Sale
	raw, err := mem.Get(ctx, KeySales)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 3, "existing records survive the next write")
	assert.Equal(t, "Milk", persisted[0].Name)
	assert.Equal(t, "1717171717171.4242", persisted[1].ID)

	removed, err := s.RemoveExpense(ctx, core.Confirm("1717171800000.9"))
	require.NoError(t, err)
	assert.True(t, removed, "numeric ids can be removed by their text")
	assert.Empty(t, s.Snapshot().Expenses)
}

func TestOpenBoundsOutOfRangeValues(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	require.NoError(t, mem.Set(ctx, KeySales, []byte(`[{"id":"a","name":"x","qty":1e50000000,"sellPrice":1e50000000,"currency":"UZS"}]`)))
	require.NoError(t, mem.Set(ctx, KeyRate, []byte(`1e50000000`)))

	s := openStore(t, mem)
	l := s.Snapshot()
	require.Len(t, l.Sales, 1)
	assert.Equal(t, 1, l.Sales[0].Quantity)
	assert.True(t, l.Sales[0].SellPrice.IsZero())
	assert.True(t, l.Rate.Equal(decimal.NewFromInt(1)))
	assert.True(t, s.Summary().Income.IsZero())
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("io error") }
func (brokenKV) Set(context.Context, string, []byte) error   { return nil }

func TestOpenFailsOnReadError(t *testing.T) {
	_, err := Open(context.Background(), brokenKV{}, Options{Logger: log.Discard()})
	assert.Error(t, err)
}

func TestPersistenceFailureIsReportedThenFatal(t *testing.T) {
	ctx := context.Background()
	kvs := &failingKV{Store: memory.New()}
	s := openStore(t, kvs)

	kvs.fail = true
	_, err := s.AddSale(ctx, core.SaleInput{Name: "a", SellPrice: "1"})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Error(t, s.Err())
	assert.Len(t, s.Snapshot().Sales, 1, "in-memory change is kept")

	kvs.fail = false
	_, err = s.AddExpense(ctx, core.ExpenseInput{Note: "n", Amount: "1"})
	assert.ErrorIs(t, err, ErrStoreFailed)
	_, err = s.SetExchangeRate(ctx, decimal.NewFromInt(2))
	assert.ErrorIs(t, err, ErrStoreFailed)
	_, err = s.RemoveSale(ctx, core.Confirm("id-1"))
	assert.ErrorIs(t, err, ErrStoreFailed)
	assert.Empty(t, s.Snapshot().Expenses)
	assert.Equal(t, 1, kvs.sets)
}

func TestDisplayCurrencyIsNotPersisted(t *testing.T) {
	kvs := &failingKV{Store: memory.New()}
	s := openStore(t, kvs)
	s.SetDisplayCurrency(core.Foreign)
	assert.Equal(t, core.Foreign, s.Snapshot().Display)
	assert.Zero(t, kvs.sets)
}

func assertSameJSON(t *testing.T, want, got any) {
	t.Helper()
	a, err := json.Marshal(want)
	require.NoError(t, err)
	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}
