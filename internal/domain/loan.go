package domain

import "math"

// ============================================================
// Loan calculation inputs & outputs
// ============================================================

// PaymentFrequency is the closed set of supported repayment cadences.
type PaymentFrequency string

const (
	FrequencyWeekly       PaymentFrequency = "weekly"
	FrequencyBiWeekly     PaymentFrequency = "bi-weekly"
	FrequencyTwiceMonthly PaymentFrequency = "twice-monthly"
	FrequencyMonthly      PaymentFrequency = "monthly"
)

// PaymentsPerYear returns the number of payments per year for the frequency.
// ok is false for an unrecognized frequency.
func (f PaymentFrequency) PaymentsPerYear() (int, bool) {
	switch f {
	case FrequencyWeekly:
		return 52, true
	case FrequencyBiWeekly:
		return 26, true
	case FrequencyTwiceMonthly:
		return 24, true
	case FrequencyMonthly:
		return 12, true
	default:
		return 0, false
	}
}

// CalculationParams are the inputs to the amortization engine.
// All currency values are dollars; AnnualRate is a percentage (29 = 29%).
type CalculationParams struct {
	Principal        float64          `json:"principal"`
	AnnualRate       float64          `json:"annual_rate"`
	Frequency        PaymentFrequency `json:"frequency"`
	NumberOfPayments int              `json:"number_of_payments"`
	BrokerageFee     float64          `json:"brokerage_fee,omitempty"`
	OriginationFee   float64          `json:"origination_fee,omitempty"`
	OtherFees        float64          `json:"other_fees,omitempty"`
}

// TotalFees sums the optional fee components.
func (p CalculationParams) TotalFees() float64 {
	return p.BrokerageFee + p.OriginationFee + p.OtherFees
}

// TotalAmount is the chargeable principal: principal plus all fees.
func (p CalculationParams) TotalAmount() float64 {
	return p.Principal + p.TotalFees()
}

// Valid reports whether the params can produce a payment amount.
func (p CalculationParams) Valid() bool {
	total := p.TotalAmount()
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return false
	}
	if math.IsNaN(p.AnnualRate) || math.IsInf(p.AnnualRate, 0) || p.AnnualRate < 0 {
		return false
	}
	if p.NumberOfPayments <= 0 {
		return false
	}
	if _, ok := p.Frequency.PaymentsPerYear(); !ok {
		return false
	}
	return true
}

// PaymentBreakdown is one entry in a payment schedule.
// Invariant: Interest + Principal == Amount within one cent, and the
// last entry of a schedule carries RemainingBalance == 0.
type PaymentBreakdown struct {
	Number           int     `json:"payment_number"`
	DueDate          string  `json:"due_date"` // YYYY-MM-DD
	Amount           float64 `json:"amount"`
	Interest         float64 `json:"interest"`
	Principal        float64 `json:"principal"`
	RemainingBalance float64 `json:"remaining_balance"`
}

// CalculationResult aggregates a full loan calculation. It is derived,
// never stored independently, and recomputed whenever inputs change.
type CalculationResult struct {
	Principal       float64            `json:"principal"`
	TotalFees       float64            `json:"total_fees"`
	TotalLoanAmount float64            `json:"total_loan_amount"`
	PaymentAmount   float64            `json:"payment_amount"`
	TotalRepayment  float64            `json:"total_repayment"`
	TotalInterest   float64            `json:"total_interest"`
	Schedule        []PaymentBreakdown `json:"payment_schedule"`
}

// BalanceInput describes a single balance transition.
type BalanceInput struct {
	CurrentBalance float64 `json:"current_balance"`
	PaymentAmount  float64 `json:"payment_amount"`
	AdditionalFees float64 `json:"additional_fees,omitempty"`
}

// BalanceResult is the outcome of applying a payment to a balance.
// NewBalance is floored at zero: overpayment is absorbed.
type BalanceResult struct {
	NewBalance float64 `json:"new_balance"`
	AmountPaid float64 `json:"amount_paid"`
	PaidOff    bool    `json:"is_paid_off"`
}

// ============================================================
// Persisted loan records (Supabase tables)
// ============================================================

// LoanApplication is a row from loan_applications.
type LoanApplication struct {
	ID               string           `json:"id"`
	CustomerID       string           `json:"customer_id"`
	Status           string           `json:"status"`
	Principal        float64          `json:"principal"`
	AnnualRate       float64          `json:"annual_rate"`
	Frequency        PaymentFrequency `json:"frequency"`
	NumberOfPayments int              `json:"number_of_payments"`
	BrokerageFee     float64          `json:"brokerage_fee"`
	OriginationFee   float64          `json:"origination_fee"`
	FirstPaymentDate string           `json:"first_payment_date"`
}

// CalculationParams maps the application row onto engine inputs.
func (a *LoanApplication) CalculationParams() CalculationParams {
	return CalculationParams{
		Principal:        a.Principal,
		AnnualRate:       a.AnnualRate,
		Frequency:        a.Frequency,
		NumberOfPayments: a.NumberOfPayments,
		BrokerageFee:     a.BrokerageFee,
		OriginationFee:   a.OriginationFee,
	}
}

// ContractTerms is the schedule artifact persisted for contract rendering.
type ContractTerms struct {
	ApplicationID   string             `json:"application_id"`
	PaymentAmount   float64            `json:"payment_amount"`
	TotalLoanAmount float64            `json:"total_loan_amount"`
	TotalInterest   float64            `json:"total_interest"`
	TotalRepayment  float64            `json:"total_repayment"`
	PaymentSchedule []PaymentBreakdown `json:"payment_schedule"`
}

// Loan is an active loan being serviced.
type Loan struct {
	ID               string           `json:"id"`
	ApplicationID    string           `json:"application_id"`
	CustomerID       string           `json:"customer_id"`
	Status           string           `json:"status"`
	AnnualRate       float64          `json:"annual_rate"`
	Frequency        PaymentFrequency `json:"frequency"`
	PaymentAmount    float64          `json:"payment_amount"`
	RemainingBalance float64          `json:"remaining_balance"`
	OriginationFee   float64          `json:"origination_fee"`
}
