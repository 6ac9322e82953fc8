package handler

import (
	"net/http"

	"github.com/kmoussai/flash-loan-sub005/internal/infra/observability"
	"github.com/kmoussai/flash-loan-sub005/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates the HTTP router with all routes and middleware.
// Quote is public (the application wizard calls it pre-auth); schedule
// persistence, servicing and verification are back-office operations
// behind admin JWT auth.
func NewRouter(loans *service.Loans, verification *service.Verification, metrics *observability.Metrics, logger *zap.Logger, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Quoting (public)
		r.Post("/loans/quote", quoteHandler(loans, logger))

		// Back-office (admin JWT)
		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(jwtSecret, logger))

			// Contract schedules
			r.Post("/applications/{applicationID}/schedule", createScheduleHandler(loans, logger))
			r.Get("/applications/{applicationID}/schedule", getScheduleHandler(loans, logger))

			// Loan servicing
			r.Post("/loans/{loanID}/payments", recordPaymentHandler(loans, logger))
			r.Post("/loans/{loanID}/payments/fail", failPaymentHandler(loans, logger))
			r.Post("/loans/{loanID}/payments/defer", deferPaymentHandler(loans, logger))

			// Bank verification
			r.Post("/applications/{applicationID}/ibv/run", runVerificationHandler(verification, logger))
			r.Get("/applications/{applicationID}/ibv/summary", getVerificationSummaryHandler(verification, logger))
			r.Post("/applications/{applicationID}/ibv/recompute", recomputeVerificationHandler(verification, logger))

			// Ops snapshot
			r.Get("/admin/metrics", opsMetricsHandler(metrics))
		})
	})

	return r
}

// healthzHandler reports process liveness.
func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports readiness to serve traffic.
func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// GET /v1/admin/metrics
func opsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
