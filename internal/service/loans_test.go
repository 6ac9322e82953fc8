package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/observability"
	"github.com/kmoussai/flash-loan-sub005/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockLoanStore is a hand-rolled port.LoanStore.
type mockLoanStore struct {
	application *domain.LoanApplication
	loan        *domain.Loan

	savedTerms    *domain.ContractTerms
	savedSchedule []domain.PaymentBreakdown
	statusSet     string
	balanceSet    float64
	loanStatusSet string
}

func (m *mockLoanStore) GetApplication(_ context.Context, id string) (*domain.LoanApplication, error) {
	if m.application == nil || m.application.ID != id {
		return nil, &domain.ErrNotFound{Resource: "application", ID: id}
	}
	return m.application, nil
}

func (m *mockLoanStore) UpdateApplicationStatus(_ context.Context, _, status string) error {
	m.statusSet = status
	return nil
}

func (m *mockLoanStore) SaveContractTerms(_ context.Context, terms *domain.ContractTerms) error {
	m.savedTerms = terms
	return nil
}

func (m *mockLoanStore) GetContractTerms(_ context.Context, id string) (*domain.ContractTerms, error) {
	if m.savedTerms == nil {
		return nil, &domain.ErrNotFound{Resource: "contract terms", ID: id}
	}
	return m.savedTerms, nil
}

func (m *mockLoanStore) GetLoan(_ context.Context, id string) (*domain.Loan, error) {
	if m.loan == nil || m.loan.ID != id {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	return m.loan, nil
}

func (m *mockLoanStore) UpdateLoanBalance(_ context.Context, _ string, balance float64, status string) error {
	m.balanceSet = balance
	m.loanStatusSet = status
	return nil
}

func (m *mockLoanStore) SaveLoanSchedule(_ context.Context, _ string, schedule []domain.PaymentBreakdown) error {
	m.savedSchedule = schedule
	return nil
}

func newLoansService(store *mockLoanStore) *service.Loans {
	return service.NewLoans(store, observability.NewMetrics(), zap.NewNop(), 48, 35, 1000)
}

func TestQuote(t *testing.T) {
	svc := newLoansService(&mockLoanStore{})

	result, err := svc.Quote(context.Background(), domain.CalculationParams{
		Principal:        500,
		AnnualRate:       29,
		Frequency:        domain.FrequencyMonthly,
		NumberOfPayments: 3,
	}, "2024-01-15")
	require.NoError(t, err)
	assert.InDelta(t, 174.79, result.PaymentAmount, 0.01)
	assert.Len(t, result.Schedule, 3)
}

func TestQuote_InvalidInput(t *testing.T) {
	svc := newLoansService(&mockLoanStore{})
	valid := domain.CalculationParams{
		Principal:        500,
		AnnualRate:       29,
		Frequency:        domain.FrequencyMonthly,
		NumberOfPayments: 3,
	}

	_, err := svc.Quote(context.Background(), valid, "15/01/2024")
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)

	bad := valid
	bad.Principal = -1
	_, err = svc.Quote(context.Background(), bad, "2024-01-15")
	require.ErrorAs(t, err, &validation)
}

func TestCreateSchedule(t *testing.T) {
	store := &mockLoanStore{
		application: &domain.LoanApplication{
			ID:               "app-1",
			Status:           "approved",
			Principal:        1500,
			AnnualRate:       29,
			Frequency:        domain.FrequencyBiWeekly,
			NumberOfPayments: 10,
			BrokerageFee:     90,
			FirstPaymentDate: "2024-05-03",
		},
	}
	svc := newLoansService(store)

	terms, err := svc.CreateSchedule(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, "contract_ready", store.statusSet)
	require.NotNil(t, store.savedTerms)
	assert.Len(t, terms.PaymentSchedule, 10)
	assert.Equal(t, 0.0, terms.PaymentSchedule[9].RemainingBalance)
	assert.InDelta(t, 1590, terms.TotalLoanAmount, 0.001)
}

func TestCreateSchedule_AdjustsDueDatesToBusinessDays(t *testing.T) {
	store := &mockLoanStore{
		application: &domain.LoanApplication{
			ID:               "app-2",
			Principal:        500,
			AnnualRate:       29,
			Frequency:        domain.FrequencyTwiceMonthly,
			NumberOfPayments: 4,
			FirstPaymentDate: "2024-03-15",
		},
	}
	svc := newLoansService(store)

	terms, err := svc.CreateSchedule(context.Background(), "app-2")
	require.NoError(t, err)

	// Raw anchors: 03-15, 03-31, 04-15, 04-30. Mar 31 is Easter Sunday
	// and Mar 29 Good Friday, so the contract shows Mar 28.
	require.Len(t, terms.PaymentSchedule, 4)
	assert.Equal(t, "2024-03-15", terms.PaymentSchedule[0].DueDate)
	assert.Equal(t, "2024-03-28", terms.PaymentSchedule[1].DueDate)
	assert.Equal(t, "2024-04-15", terms.PaymentSchedule[2].DueDate)
	assert.Equal(t, "2024-04-30", terms.PaymentSchedule[3].DueDate)
}

func TestCreateSchedule_UnknownApplication(t *testing.T) {
	svc := newLoansService(&mockLoanStore{})

	_, err := svc.CreateSchedule(context.Background(), "nope")
	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func activeLoan() *domain.Loan {
	return &domain.Loan{
		ID:               "loan-1",
		Status:           "active",
		AnnualRate:       29,
		Frequency:        domain.FrequencyBiWeekly,
		PaymentAmount:    120,
		RemainingBalance: 800,
		OriginationFee:   48,
	}
}

func TestRecordPayment(t *testing.T) {
	store := &mockLoanStore{loan: activeLoan()}
	svc := newLoansService(store)

	result, err := svc.RecordPayment(context.Background(), "loan-1", 120, "2024-06-07")
	require.NoError(t, err)

	assert.Equal(t, 680.0, result.Balance.NewBalance)
	assert.False(t, result.Balance.PaidOff)
	assert.Equal(t, "active", store.loanStatusSet)
	require.NotEmpty(t, result.Schedule)
	assert.Equal(t, 0.0, result.Schedule[len(result.Schedule)-1].RemainingBalance)
	assert.Equal(t, result.Schedule, store.savedSchedule)
}

func TestRecordPayment_Payoff(t *testing.T) {
	store := &mockLoanStore{loan: activeLoan()}
	svc := newLoansService(store)

	result, err := svc.RecordPayment(context.Background(), "loan-1", 900, "2024-06-07")
	require.NoError(t, err)

	assert.True(t, result.Balance.PaidOff)
	assert.Equal(t, 0.0, result.Balance.NewBalance)
	assert.Equal(t, "paid", store.loanStatusSet)
	assert.Empty(t, result.Schedule)
	assert.Nil(t, store.savedSchedule)
}

func TestRecordPayment_Invalid(t *testing.T) {
	svc := newLoansService(&mockLoanStore{loan: activeLoan()})

	_, err := svc.RecordPayment(context.Background(), "loan-1", 0, "2024-06-07")
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)
}

func TestFailPayment(t *testing.T) {
	store := &mockLoanStore{loan: activeLoan()}
	svc := newLoansService(store)

	failed := []domain.PaymentBreakdown{{Number: 3, Interest: 8.92}}
	result, err := svc.FailPayment(context.Background(), "loan-1", failed, "2024-06-21")
	require.NoError(t, err)

	// 800 + one 48 fee + 8.92 interest.
	assert.InDelta(t, 856.92, result.Balance.NewBalance, 0.001)
	assert.NotEmpty(t, result.Schedule)
}

func TestFailPayment_RequiresFailedEntries(t *testing.T) {
	svc := newLoansService(&mockLoanStore{loan: activeLoan()})

	_, err := svc.FailPayment(context.Background(), "loan-1", nil, "2024-06-21")
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)
}

func TestDeferPayment(t *testing.T) {
	store := &mockLoanStore{loan: activeLoan()}
	svc := newLoansService(store)

	deferred := domain.PaymentBreakdown{Number: 2, Interest: 8.92, Amount: 120}
	result, err := svc.DeferPayment(context.Background(), "loan-1", deferred, "2024-06-21")
	require.NoError(t, err)

	// 800 + deferred interest + 35 deferral fee; no payment applied.
	assert.InDelta(t, 843.92, result.Balance.NewBalance, 0.001)
	assert.NotEmpty(t, result.Schedule)
	assert.Equal(t, "2024-06-21", result.Schedule[0].DueDate)
}

func TestServicing_UnknownLoan(t *testing.T) {
	svc := newLoansService(&mockLoanStore{})

	_, err := svc.RecordPayment(context.Background(), "ghost", 50, "2024-06-07")
	var notFound *domain.ErrNotFound
	require.True(t, errors.As(err, &notFound))
}
