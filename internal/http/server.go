// Package http exposes the ledger over a small local JSON API: the
// presentation layer collects input, asks for delete confirmation and
// renders the formatted totals this package returns.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"dokon/internal/core"
	"dokon/internal/log"
)

// Ledger is the subset of the ledger store the handlers drive.
type Ledger interface {
	AddSale(ctx context.Context, in core.SaleInput) (core.Sale, error)
	AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	RemoveSale(ctx context.Context, c core.Confirmation) (bool, error)
	RemoveExpense(ctx context.Context, c core.Confirmation) (bool, error)
	SetExchangeRate(ctx context.Context, rate decimal.Decimal) (decimal.Decimal, error)
	SetDisplayCurrency(c core.Currency)
	Snapshot() core.Ledger
}

type Server struct {
	http.Server
	ledger    Ledger
	formatter *core.Formatter
	logger    *log.Logger
}

func NewServer(addr string, ledger Ledger, formatter *core.Formatter, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		ledger:    ledger,
		formatter: formatter,
		logger:    logger.WithComponent(log.ComponentHTTP),
	}
	s.Addr = addr
	s.Handler = s.routes()
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16 // 64KB
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ledger", s.handleLedger)
		r.Get("/summary", s.handleSummary)

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", s.handleListSales)
			r.Post("/", s.handleCreateSale)
			r.Delete("/{id}", s.handleDeleteSale)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Get("/rate", s.handleGetRate)
		r.Put("/rate", s.handleSetRate)
		r.Put("/display", s.handleSetDisplay)
	})

	return r
}
