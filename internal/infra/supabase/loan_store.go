package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Loan store (implements port.LoanStore) ---

// applicationRow maps loan_applications table columns to our domain.
type applicationRow struct {
	ID               string  `json:"id"`
	CustomerID       string  `json:"customer_id"`
	Status           string  `json:"status"`
	Principal        float64 `json:"principal"`
	AnnualRate       float64 `json:"annual_rate"`
	Frequency        string  `json:"payment_frequency"`
	NumberOfPayments int     `json:"number_of_payments"`
	BrokerageFee     float64 `json:"brokerage_fee"`
	OriginationFee   float64 `json:"origination_fee"`
	FirstPaymentDate string  `json:"first_payment_date"`
}

// GetApplication fetches a loan application row.
func (c *Client) GetApplication(ctx context.Context, applicationID string) (*domain.LoanApplication, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetApplication")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	var app *domain.LoanApplication

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("loan_applications?id=eq.%s&limit=1", applicationID)
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "application", ID: applicationID}
		}

		var rows []applicationRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode application: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "application", ID: applicationID}
		}

		r := rows[0]
		app = &domain.LoanApplication{
			ID:               r.ID,
			CustomerID:       r.CustomerID,
			Status:           r.Status,
			Principal:        r.Principal,
			AnnualRate:       r.AnnualRate,
			Frequency:        domain.PaymentFrequency(r.Frequency),
			NumberOfPayments: r.NumberOfPayments,
			BrokerageFee:     r.BrokerageFee,
			OriginationFee:   r.OriginationFee,
			FirstPaymentDate: r.FirstPaymentDate,
		}
		return nil
	})

	if err != nil {
		return nil, wrapStoreErr("supabase/applications", err)
	}
	return app, nil
}

// UpdateApplicationStatus patches the status column.
func (c *Client) UpdateApplicationStatus(ctx context.Context, applicationID, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateApplicationStatus")
	defer span.End()

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("loan_applications?id=eq.%s", applicationID)
		_, err := c.doRequest(ctx, http.MethodPatch, path, map[string]string{"status": status})
		return err
	})
	return wrapStoreErr("supabase/applications", err)
}

// contractTermsRow flattens the schedule into a jsonb column.
type contractTermsRow struct {
	ApplicationID   string                    `json:"application_id"`
	PaymentAmount   float64                   `json:"payment_amount"`
	TotalLoanAmount float64                   `json:"total_loan_amount"`
	TotalInterest   float64                   `json:"total_interest"`
	TotalRepayment  float64                   `json:"total_repayment"`
	PaymentSchedule []domain.PaymentBreakdown `json:"payment_schedule"`
}

// SaveContractTerms upserts the computed schedule for an application.
func (c *Client) SaveContractTerms(ctx context.Context, terms *domain.ContractTerms) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveContractTerms")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", terms.ApplicationID))

	err := c.execute(ctx, func() error {
		_, err := c.doRequest(ctx, http.MethodPost, "contract_terms", contractTermsRow{
			ApplicationID:   terms.ApplicationID,
			PaymentAmount:   terms.PaymentAmount,
			TotalLoanAmount: terms.TotalLoanAmount,
			TotalInterest:   terms.TotalInterest,
			TotalRepayment:  terms.TotalRepayment,
			PaymentSchedule: terms.PaymentSchedule,
		})
		return err
	})
	return wrapStoreErr("supabase/contract_terms", err)
}

// GetContractTerms fetches the persisted schedule for an application.
func (c *Client) GetContractTerms(ctx context.Context, applicationID string) (*domain.ContractTerms, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetContractTerms")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	var terms *domain.ContractTerms

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("contract_terms?application_id=eq.%s&limit=1", applicationID)
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "contract terms", ID: applicationID}
		}

		var rows []contractTermsRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode contract terms: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "contract terms", ID: applicationID}
		}

		r := rows[0]
		terms = &domain.ContractTerms{
			ApplicationID:   r.ApplicationID,
			PaymentAmount:   r.PaymentAmount,
			TotalLoanAmount: r.TotalLoanAmount,
			TotalInterest:   r.TotalInterest,
			TotalRepayment:  r.TotalRepayment,
			PaymentSchedule: r.PaymentSchedule,
		}
		return nil
	})

	if err != nil {
		return nil, wrapStoreErr("supabase/contract_terms", err)
	}
	return terms, nil
}

// loanRow maps loans table columns.
type loanRow struct {
	ID               string  `json:"id"`
	ApplicationID    string  `json:"application_id"`
	CustomerID       string  `json:"customer_id"`
	Status           string  `json:"status"`
	AnnualRate       float64 `json:"annual_rate"`
	Frequency        string  `json:"payment_frequency"`
	PaymentAmount    float64 `json:"payment_amount"`
	RemainingBalance float64 `json:"remaining_balance"`
	OriginationFee   float64 `json:"origination_fee"`
}

// GetLoan fetches an active loan row.
func (c *Client) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLoan")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	var loan *domain.Loan

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("loans?id=eq.%s&limit=1", loanID)
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "loan", ID: loanID}
		}

		var rows []loanRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode loan: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "loan", ID: loanID}
		}

		r := rows[0]
		loan = &domain.Loan{
			ID:               r.ID,
			ApplicationID:    r.ApplicationID,
			CustomerID:       r.CustomerID,
			Status:           r.Status,
			AnnualRate:       r.AnnualRate,
			Frequency:        domain.PaymentFrequency(r.Frequency),
			PaymentAmount:    r.PaymentAmount,
			RemainingBalance: r.RemainingBalance,
			OriginationFee:   r.OriginationFee,
		}
		return nil
	})

	if err != nil {
		return nil, wrapStoreErr("supabase/loans", err)
	}
	return loan, nil
}

// UpdateLoanBalance patches the balance and status after a servicing event.
func (c *Client) UpdateLoanBalance(ctx context.Context, loanID string, balance float64, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLoanBalance")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("loans?id=eq.%s", loanID)
		_, err := c.doRequest(ctx, http.MethodPatch, path, map[string]any{
			"remaining_balance": balance,
			"status":            status,
		})
		return err
	})
	return wrapStoreErr("supabase/loans", err)
}

// SaveLoanSchedule replaces the stored schedule jsonb for a loan.
func (c *Client) SaveLoanSchedule(ctx context.Context, loanID string, schedule []domain.PaymentBreakdown) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveLoanSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("loans?id=eq.%s", loanID)
		_, err := c.doRequest(ctx, http.MethodPatch, path, map[string]any{
			"payment_schedule": schedule,
		})
		return err
	})
	return wrapStoreErr("supabase/loans", err)
}

// wrapStoreErr keeps typed domain errors intact and wraps everything
// else as an external-service failure.
func wrapStoreErr(service string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *domain.ErrNotFound, *domain.ErrCircuitOpen:
		return err
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}
