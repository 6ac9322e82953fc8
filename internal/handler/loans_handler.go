package handler

import (
	"net/http"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// quoteRequest is the public quote payload.
type quoteRequest struct {
	Principal        float64                 `json:"principal"`
	AnnualRate       float64                 `json:"annual_rate"`
	Frequency        domain.PaymentFrequency `json:"frequency"`
	NumberOfPayments int                     `json:"number_of_payments"`
	BrokerageFee     float64                 `json:"brokerage_fee"`
	OriginationFee   float64                 `json:"origination_fee"`
	FirstPaymentDate string                  `json:"first_payment_date"`
}

type quoteResponse struct {
	QuoteID string `json:"quote_id"`
	domain.CalculationResult
}

// POST /v1/loans/quote
func quoteHandler(svc *service.Loans, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quoteRequest
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := svc.Quote(r.Context(), domain.CalculationParams{
			Principal:        req.Principal,
			AnnualRate:       req.AnnualRate,
			Frequency:        req.Frequency,
			NumberOfPayments: req.NumberOfPayments,
			BrokerageFee:     req.BrokerageFee,
			OriginationFee:   req.OriginationFee,
		}, req.FirstPaymentDate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, quoteResponse{
			QuoteID:           uuid.NewString(),
			CalculationResult: *result,
		})
	}
}

// POST /v1/applications/{applicationID}/schedule
func createScheduleHandler(svc *service.Loans, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID := chi.URLParam(r, "applicationID")

		terms, err := svc.CreateSchedule(r.Context(), applicationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, terms)
	}
}

// GET /v1/applications/{applicationID}/schedule
func getScheduleHandler(svc *service.Loans, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID := chi.URLParam(r, "applicationID")

		terms, err := svc.GetSchedule(r.Context(), applicationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, terms)
	}
}

type paymentRequest struct {
	Amount          float64 `json:"amount"`
	NextPaymentDate string  `json:"next_payment_date"`
}

// POST /v1/loans/{loanID}/payments
func recordPaymentHandler(svc *service.Loans, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID := chi.URLParam(r, "loanID")
		var req paymentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := svc.RecordPayment(r.Context(), loanID, req.Amount, req.NextPaymentDate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type failPaymentRequest struct {
	FailedPayments  []domain.PaymentBreakdown `json:"failed_payments"`
	NextPaymentDate string                    `json:"next_payment_date"`
}

// POST /v1/loans/{loanID}/payments/fail
func failPaymentHandler(svc *service.Loans, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID := chi.URLParam(r, "loanID")
		var req failPaymentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := svc.FailPayment(r.Context(), loanID, req.FailedPayments, req.NextPaymentDate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type deferPaymentRequest struct {
	DeferredPayment domain.PaymentBreakdown `json:"deferred_payment"`
	NextPaymentDate string                  `json:"next_payment_date"`
}

// POST /v1/loans/{loanID}/payments/defer
func deferPaymentHandler(svc *service.Loans, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID := chi.URLParam(r, "loanID")
		var req deferPaymentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := svc.DeferPayment(r.Context(), loanID, req.DeferredPayment, req.NextPaymentDate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
