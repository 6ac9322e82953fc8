// Package service orchestrates the pure calculation engines with
// persistence and external providers.
package service

import (
	"context"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/observability"
	"github.com/kmoussai/flash-loan-sub005/internal/loan"
	"github.com/kmoussai/flash-loan-sub005/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var loansTracer = otel.Tracer("service/loans")

// Loans handles quoting, contract schedule generation and servicing
// events (payments, failures, deferrals).
type Loans struct {
	store       port.LoanStore
	metrics     *observability.Metrics
	logger      *zap.Logger
	nsfFee      float64
	deferralFee float64
	maxPeriods  int
}

// NewLoans creates the loans service with all dependencies injected.
func NewLoans(store port.LoanStore, metrics *observability.Metrics, logger *zap.Logger, nsfFee, deferralFee float64, maxPeriods int) *Loans {
	return &Loans{
		store:       store,
		metrics:     metrics,
		logger:      logger,
		nsfFee:      nsfFee,
		deferralFee: deferralFee,
		maxPeriods:  maxPeriods,
	}
}

// Quote computes a full calculation for ad-hoc parameters without
// touching storage. Due dates are the raw cadence dates; the contract
// step is where business-day adjustment happens.
func (s *Loans) Quote(ctx context.Context, params domain.CalculationParams, firstPaymentDate string) (*domain.CalculationResult, error) {
	_, span := loansTracer.Start(ctx, "Loans.Quote")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("quote", time.Since(start))
	}()

	if _, ok := loan.ParseDate(firstPaymentDate); !ok {
		return nil, &domain.ErrValidation{Field: "first_payment_date", Message: "must be YYYY-MM-DD"}
	}

	result, ok := loan.Result(params, firstPaymentDate)
	if !ok {
		return nil, &domain.ErrValidation{Field: "params", Message: "cannot produce a payment amount"}
	}

	s.metrics.IncrSchedule("quote")
	return &result, nil
}

// CreateSchedule computes and persists the contract schedule for an
// application. The persisted artifact carries business-day-adjusted
// due dates, since it is what the signed contract renders.
func (s *Loans) CreateSchedule(ctx context.Context, applicationID string) (*domain.ContractTerms, error) {
	ctx, span := loansTracer.Start(ctx, "Loans.CreateSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	result, ok := loan.Result(app.CalculationParams(), app.FirstPaymentDate)
	if !ok {
		s.logger.Warn("application has invalid calculation params",
			zap.String("application_id", applicationID),
		)
		return nil, &domain.ErrValidation{Field: "application", Message: "cannot produce a payment schedule"}
	}

	terms := &domain.ContractTerms{
		ApplicationID:   applicationID,
		PaymentAmount:   result.PaymentAmount,
		TotalLoanAmount: result.TotalLoanAmount,
		TotalInterest:   result.TotalInterest,
		TotalRepayment:  result.TotalRepayment,
		PaymentSchedule: loan.AdjustToBusinessDays(result.Schedule),
	}

	if err := s.store.SaveContractTerms(ctx, terms); err != nil {
		return nil, err
	}
	if err := s.store.UpdateApplicationStatus(ctx, applicationID, "contract_ready"); err != nil {
		return nil, err
	}

	s.metrics.IncrSchedule("contract")
	s.logger.Info("contract schedule created",
		zap.String("application_id", applicationID),
		zap.Int("payments", len(terms.PaymentSchedule)),
		zap.Float64("payment_amount", terms.PaymentAmount),
	)
	return terms, nil
}

// GetSchedule returns the persisted contract schedule.
func (s *Loans) GetSchedule(ctx context.Context, applicationID string) (*domain.ContractTerms, error) {
	ctx, span := loansTracer.Start(ctx, "Loans.GetSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	return s.store.GetContractTerms(ctx, applicationID)
}

// ServicingResult is returned by every balance-changing event.
type ServicingResult struct {
	Balance  domain.BalanceResult      `json:"balance"`
	Schedule []domain.PaymentBreakdown `json:"schedule,omitempty"`
}

// RecordPayment applies a received payment to a loan and re-amortizes
// the remainder from the next payment date.
func (s *Loans) RecordPayment(ctx context.Context, loanID string, amount float64, nextPaymentDate string) (*ServicingResult, error) {
	ctx, span := loansTracer.Start(ctx, "Loans.RecordPayment")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}

	l, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	balance := loan.NewBalance(domain.BalanceInput{
		CurrentBalance: l.RemainingBalance,
		PaymentAmount:  amount,
	})

	return s.applyBalanceChange(ctx, l, balance, nextPaymentDate, "payment recorded")
}

// FailPayment adds failure penalties (one NSF-style fee per failed
// entry plus each entry's interest) and re-amortizes.
func (s *Loans) FailPayment(ctx context.Context, loanID string, failed []domain.PaymentBreakdown, nextPaymentDate string) (*ServicingResult, error) {
	ctx, span := loansTracer.Start(ctx, "Loans.FailPayment")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	if len(failed) == 0 {
		return nil, &domain.ErrValidation{Field: "failed_payments", Message: "must list at least one failed payment"}
	}

	l, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	fees := loan.FailedPaymentFees(loan.FailedFeesInput{
		FailedPayments: failed,
		OriginationFee: s.nsfFee,
	})

	balance := loan.NewBalance(domain.BalanceInput{
		CurrentBalance: l.RemainingBalance,
		AdditionalFees: fees,
	})

	s.logger.Info("payment failure applied",
		zap.String("loan_id", loanID),
		zap.Int("failed_count", len(failed)),
		zap.Float64("fees", fees),
	)
	return s.applyBalanceChange(ctx, l, balance, nextPaymentDate, "payment failed")
}

// DeferPayment pushes one scheduled payment forward: its interest plus
// the deferral fee roll into the balance, then the schedule restarts
// from the new next payment date.
func (s *Loans) DeferPayment(ctx context.Context, loanID string, deferred domain.PaymentBreakdown, nextPaymentDate string) (*ServicingResult, error) {
	ctx, span := loansTracer.Start(ctx, "Loans.DeferPayment")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	l, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	balance := loan.NewBalance(domain.BalanceInput{
		CurrentBalance: l.RemainingBalance,
		AdditionalFees: deferred.Interest + s.deferralFee,
	})

	s.logger.Info("payment deferred",
		zap.String("loan_id", loanID),
		zap.Int("payment_number", deferred.Number),
	)
	return s.applyBalanceChange(ctx, l, balance, nextPaymentDate, "payment deferred")
}

// applyBalanceChange persists the new balance and, unless the loan is
// paid off, the re-amortized schedule.
func (s *Loans) applyBalanceChange(ctx context.Context, l *domain.Loan, balance domain.BalanceResult, nextPaymentDate, event string) (*ServicingResult, error) {
	status := "active"
	if balance.PaidOff {
		status = "paid"
	}

	if err := s.store.UpdateLoanBalance(ctx, l.ID, balance.NewBalance, status); err != nil {
		return nil, err
	}

	result := &ServicingResult{Balance: balance}
	if balance.PaidOff {
		s.logger.Info(event, zap.String("loan_id", l.ID), zap.String("status", status))
		return result, nil
	}

	if _, ok := loan.ParseDate(nextPaymentDate); !ok {
		return nil, &domain.ErrValidation{Field: "next_payment_date", Message: "must be YYYY-MM-DD"}
	}

	recalc := loan.RecalculateSchedule(loan.RecalcParams{
		NewBalance:       balance.NewBalance,
		AnnualRate:       l.AnnualRate,
		Frequency:        l.Frequency,
		PaymentAmount:    l.PaymentAmount,
		FirstPaymentDate: nextPaymentDate,
		MaxPeriods:       s.maxPeriods,
	})
	if len(recalc.Schedule) == 0 {
		return nil, &domain.ErrValidation{Field: "payment_amount", Message: "cannot amortize the new balance"}
	}

	if err := s.store.SaveLoanSchedule(ctx, l.ID, recalc.Schedule); err != nil {
		return nil, err
	}

	s.metrics.IncrSchedule("recalculation")
	s.logger.Info(event,
		zap.String("loan_id", l.ID),
		zap.Float64("new_balance", balance.NewBalance),
		zap.Int("remaining_payments", len(recalc.Schedule)),
	)

	result.Schedule = recalc.Schedule
	return result, nil
}
