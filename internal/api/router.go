// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chainlend-ledger/internal/api/handler"
	"chainlend-ledger/internal/util"
)

// RouterOptions tunes the global middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(ledgerHandler *handler.LedgerHandler, db handler.Pinger, logger *util.Logger, opts RouterOptions) http.Handler {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = handler.DefaultTimeout
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	httpLogger := logger.WithComponent("http")

	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(httpLogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health(db, httpLogger))

	// Chain events
	r.Post("/fundings", ledgerHandler.RecordFunding)
	r.Post("/repayments", ledgerHandler.RecordRepayment)
	r.Post("/verifications", ledgerHandler.VerifyAgainstChain)
	r.Get("/funded-loans/active", ledgerHandler.ListActiveFundedLoans)

	r.Get("/credit-scores/{userKey}", ledgerHandler.GetCreditScore)

	r.Route("/loan-requests", func(r chi.Router) {
		r.Post("/", ledgerHandler.RequestLoan)
		r.Post("/{loanId}/default", ledgerHandler.MarkDefaulted)
	})

	r.Route("/users/{userKey}", func(r chi.Router) {
		r.Get("/loans", ledgerHandler.GetUserLoans)
		r.Get("/summary", ledgerHandler.GetUserSummary)
	})

	return r
}
