package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/xscan/payments/internal/fees"
	"github.com/xscan/payments/internal/transactions"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(txSvc *transactions.Service, calc *fees.Calculator, logger zerolog.Logger) http.Handler {
	h := &Handlers{
		txSvc:  txSvc,
		calc:   calc,
		logger: logger.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(ensureRequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Fee quotes.
		r.Post("/fees/calculate", h.CalculateFee)
		r.Post("/fees/bulk", h.CalculateBulkFee)
		r.Post("/fees/tiered", h.CalculateTieredFee)
		r.Post("/fees/international", h.CalculateInternationalFee)
		r.Post("/fees/validate", h.ValidateFeeStructure)

		// Transactions.
		r.Post("/transactions", h.CreateTransaction)

		// Provider webhooks.
		r.Post("/webhooks/{provider}", h.ProviderWebhook)

		// Admin.
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/fees", h.GetFeeSchedule)
			r.Put("/fees/{feeType}", h.UpdateFeeConfig)

			r.Get("/transactions", h.ListTransactions)
			r.Get("/transactions/stats", h.GetTransactionStats)
			r.Get("/transactions/export", h.ExportTransactions)
			r.Post("/transactions/bulk-action", h.BulkAction)
			r.Get("/transactions/{id}", h.GetTransaction)
			r.Post("/transactions/{id}/dispute", h.HandleDispute)
			r.Post("/transactions/{id}/adjustment", h.ApplyAdjustment)
			r.Post("/transactions/{id}/action", h.PerformTransactionAction)
		})
	})

	return r
}
