// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/idempotency"
)

// Idempotency enables replay of mutating requests that carry an
// Idempotency-Key header. A nil Store disables it.
type Idempotency struct {
	Store idempotency.Store
	TTL   time.Duration
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(walletHandler *handler.WalletHandler, orderHandler *handler.OrderHandler, provider auth.Provider, idem Idempotency, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	replayable := func(next http.Handler) http.Handler { return next }
	if idem.Store != nil {
		replayable = idempotency.Middleware(idem.Store, idem.TTL, callerScope, idempotency.ErrorWriter(handler.ErrorWriter(logger)), logger)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(provider, handler.ErrorWriter(logger)))

		r.Route("/orders", func(r chi.Router) {
			r.With(replayable).Post("/", orderHandler.CreateOrder)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/stats", orderHandler.GetOrderStatistics)
			r.Get("/{orderID}", orderHandler.GetOrder)
			r.With(replayable).Put("/{orderID}/status", orderHandler.UpdateOrderStatus)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", walletHandler.GetBalance)
			r.With(auth.RequireRole(auth.RoleAdmin, handler.ErrorWriter(logger)), replayable).Post("/credit", walletHandler.CreditWallet)
			r.With(replayable).Post("/topup", walletHandler.TopUp)
			r.With(replayable).Post("/debit", walletHandler.DebitWallet)
			r.Get("/transactions", walletHandler.ListTransactions)
			r.Get("/ledger", walletHandler.ListLedgerEntries)
			r.Get("/stats", walletHandler.GetWalletStatistics)
		})
	})

	return r
}

// callerScope keys idempotency records by the authenticated account.
func callerScope(r *http.Request) string {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return ""
	}
	return accountID.String()
}
