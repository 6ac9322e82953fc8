// Package loan implements the amortization engine: fixed-payment
// computation, calendar-aware schedule expansion, and balance
// recalculation after payments, deferrals and modifications.
//
// Everything here is pure and synchronous. Invalid input is signalled
// with a false ok or an empty schedule, never an error or a panic —
// callers are expected to check the sentinel before use.
package loan

import (
	"math"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
)

// DefaultMaxPeriods caps the until-zero schedule loop. A payment that
// never amortizes a positive-rate balance would otherwise loop forever.
// Empirically tuned, not derived; override per call if needed.
const DefaultMaxPeriods = 1000

// PaymentAmount computes the fixed periodic payment for the given
// params using the standard amortization formula
//
//	payment = P·r·(1+r)^n / ((1+r)^n − 1)
//
// where P is principal plus fees and r the per-period rate. A zero rate
// degenerates to an even split. ok is false for invalid params or a
// zero denominator.
func PaymentAmount(p domain.CalculationParams) (float64, bool) {
	if !p.Valid() {
		return 0, false
	}

	total := p.TotalAmount()
	n := float64(p.NumberOfPayments)

	perYear, _ := p.Frequency.PaymentsPerYear()
	rate := p.AnnualRate / 100 / float64(perYear)

	if rate == 0 {
		return total / n, true
	}

	factor := math.Pow(1+rate, n)
	denominator := factor - 1
	if denominator == 0 {
		return 0, false
	}

	payment := total * rate * factor / denominator
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return 0, false
	}
	return payment, true
}

// Schedule expands the fixed payment into a full payment-by-payment
// breakdown starting at firstPaymentDate (YYYY-MM-DD). The final period
// forces principal to the entire remaining balance so the schedule
// terminates at exactly zero regardless of rounding drift.
//
// Due dates follow the raw cadence (monthly months, weekly/bi-weekly
// day steps, twice-monthly 15th/last-day anchors). Shifting dates off
// weekends and holidays is a separate presentation step; see
// AdjustToBusinessDays.
//
// Returns an empty schedule when the payment amount cannot be computed
// or the date is malformed.
func Schedule(p domain.CalculationParams, firstPaymentDate string) []domain.PaymentBreakdown {
	payment, ok := PaymentAmount(p)
	if !ok {
		return nil
	}
	start, ok := ParseDate(firstPaymentDate)
	if !ok {
		return nil
	}

	perYear, _ := p.Frequency.PaymentsPerYear()
	rate := p.AnnualRate / 100 / float64(perYear)

	next := dueDateSequence(p.Frequency, start)
	balance := p.TotalAmount()

	entries := make([]domain.PaymentBreakdown, 0, p.NumberOfPayments)
	for i := 1; i <= p.NumberOfPayments; i++ {
		due := next()

		interest := balance * rate
		var principal, amount float64
		if i == p.NumberOfPayments {
			principal = balance
			amount = principal + interest
		} else {
			principal = math.Max(0, payment-interest)
			amount = payment
		}
		balance -= principal

		remaining := roundCents(balance)
		if i == p.NumberOfPayments {
			remaining = 0
		}

		entries = append(entries, domain.PaymentBreakdown{
			Number:           i,
			DueDate:          due.Format(DateLayout),
			Amount:           roundCents(amount),
			Interest:         roundCents(interest),
			Principal:        roundCents(principal),
			RemainingBalance: remaining,
		})
	}
	return entries
}

// UntilZeroParams drive a schedule whose payment amount is given rather
// than derived — used after deferrals, failed payments and loan
// modifications, where the balance changed but the contract payment did
// not.
type UntilZeroParams struct {
	Balance          float64
	AnnualRate       float64
	Frequency        domain.PaymentFrequency
	PaymentAmount    float64
	FirstPaymentDate string
	MaxPeriods       int // 0 means DefaultMaxPeriods
}

// ScheduleUntilZero amortizes the balance at the fixed payment until it
// reaches ≤ $0.01 or MaxPeriods is hit. The running balance is rounded
// to cents each iteration so floating-point drift cannot compound over
// hundreds of periods. The terminal period pays remaining + interest
// exactly, producing a balloon entry when the regular payment
// overshoots.
func ScheduleUntilZero(p UntilZeroParams) []domain.PaymentBreakdown {
	maxPeriods := p.MaxPeriods
	if maxPeriods <= 0 {
		maxPeriods = DefaultMaxPeriods
	}
	if p.Balance <= 0 || p.PaymentAmount <= 0 || p.AnnualRate < 0 {
		return nil
	}
	if math.IsNaN(p.Balance) || math.IsInf(p.Balance, 0) ||
		math.IsNaN(p.PaymentAmount) || math.IsInf(p.PaymentAmount, 0) {
		return nil
	}
	perYear, ok := p.Frequency.PaymentsPerYear()
	if !ok {
		return nil
	}
	start, ok := ParseDate(p.FirstPaymentDate)
	if !ok {
		return nil
	}

	rate := p.AnnualRate / 100 / float64(perYear)
	next := dueDateSequence(p.Frequency, start)

	var entries []domain.PaymentBreakdown
	balance := p.Balance
	for i := 1; i <= maxPeriods; i++ {
		balance = roundCents(balance)
		if balance <= 0.01 {
			break
		}

		due := next()
		interest := balance * rate

		var principal, amount float64
		if p.PaymentAmount-interest >= balance {
			// Terminal period: settle the balance exactly.
			principal = balance
			amount = balance + interest
			balance = 0
		} else {
			principal = math.Max(0, p.PaymentAmount-interest)
			amount = p.PaymentAmount
			balance -= principal
		}

		entries = append(entries, domain.PaymentBreakdown{
			Number:           i,
			DueDate:          due.Format(DateLayout),
			Amount:           roundCents(amount),
			Interest:         roundCents(interest),
			Principal:        roundCents(principal),
			RemainingBalance: roundCents(balance),
		})

		if balance == 0 {
			break
		}
	}
	return entries
}

// RecalcParams wrap ScheduleUntilZero with an already-computed new
// balance. The caller decides what went into that balance (deferred
// interest, deferral fee, failed-payment penalties); this layer only
// re-amortizes it.
type RecalcParams struct {
	NewBalance       float64
	AnnualRate       float64
	Frequency        domain.PaymentFrequency
	PaymentAmount    float64
	FirstPaymentDate string
	MaxPeriods       int
}

// RecalcResult carries the new balance alongside its replacement schedule.
type RecalcResult struct {
	NewRemainingBalance float64                   `json:"new_remaining_balance"`
	Schedule            []domain.PaymentBreakdown `json:"recalculated_schedule"`
}

// RecalculateSchedule is the single entry point loan-servicing call
// sites use after any balance-changing event.
func RecalculateSchedule(p RecalcParams) RecalcResult {
	return RecalcResult{
		NewRemainingBalance: roundCents(p.NewBalance),
		Schedule: ScheduleUntilZero(UntilZeroParams{
			Balance:          p.NewBalance,
			AnnualRate:       p.AnnualRate,
			Frequency:        p.Frequency,
			PaymentAmount:    p.PaymentAmount,
			FirstPaymentDate: p.FirstPaymentDate,
			MaxPeriods:       p.MaxPeriods,
		}),
	}
}

// NewBalance applies a payment to a balance: fees are added first, then
// the payment subtracted, floored at zero. Overpayment is absorbed —
// the balance never goes negative.
func NewBalance(in domain.BalanceInput) domain.BalanceResult {
	balance := in.CurrentBalance + in.AdditionalFees - in.PaymentAmount
	if balance < 0 {
		balance = 0
	}
	balance = roundCents(balance)
	return domain.BalanceResult{
		NewBalance: balance,
		AmountPaid: in.PaymentAmount,
		PaidOff:    balance == 0,
	}
}

// FailedFeesInput lists the schedule entries that bounced plus the
// per-failure origination fee.
type FailedFeesInput struct {
	FailedPayments []domain.PaymentBreakdown
	OriginationFee float64
}

// FailedPaymentFees computes the penalty added to the balance when
// payments fail: one origination fee per failure plus each failed
// payment's interest portion.
func FailedPaymentFees(in FailedFeesInput) float64 {
	total := in.OriginationFee * float64(len(in.FailedPayments))
	for _, p := range in.FailedPayments {
		total += p.Interest
	}
	return roundCents(total)
}

// Result computes the full aggregate for a calculation: payment amount,
// schedule, and repayment/interest totals. ok is false when the params
// are invalid.
func Result(p domain.CalculationParams, firstPaymentDate string) (domain.CalculationResult, bool) {
	payment, ok := PaymentAmount(p)
	if !ok {
		return domain.CalculationResult{}, false
	}
	schedule := Schedule(p, firstPaymentDate)
	if len(schedule) == 0 {
		return domain.CalculationResult{}, false
	}

	var totalRepayment, totalInterest float64
	for _, e := range schedule {
		totalRepayment += e.Amount
		totalInterest += e.Interest
	}

	return domain.CalculationResult{
		Principal:       p.Principal,
		TotalFees:       roundCents(p.TotalFees()),
		TotalLoanAmount: roundCents(p.TotalAmount()),
		PaymentAmount:   roundCents(payment),
		TotalRepayment:  roundCents(totalRepayment),
		TotalInterest:   roundCents(totalInterest),
		Schedule:        schedule,
	}, true
}

// AdjustToBusinessDays returns a copy of the schedule with every due
// date moved to the nearest preceding business day. Applied when the
// schedule becomes a contract artifact; the raw cadence dates are kept
// for recalculation math.
func AdjustToBusinessDays(entries []domain.PaymentBreakdown) []domain.PaymentBreakdown {
	out := make([]domain.PaymentBreakdown, len(entries))
	copy(out, entries)
	for i := range out {
		d, ok := ParseDate(out[i].DueDate)
		if !ok {
			continue // malformed dates pass through untouched
		}
		out[i].DueDate = PreviousBusinessDay(d).Format(DateLayout)
	}
	return out
}

// dueDateSequence returns a generator of consecutive due dates for the
// frequency, starting at start (the first call returns the first due
// date).
func dueDateSequence(freq domain.PaymentFrequency, start time.Time) func() time.Time {
	switch freq {
	case domain.FrequencyMonthly:
		n := 0
		return func() time.Time {
			d := start.AddDate(0, n, 0)
			n++
			return d
		}
	case domain.FrequencyTwiceMonthly:
		current := firstSemiMonthlyAnchor(start)
		first := true
		return func() time.Time {
			if first {
				first = false
				return current
			}
			current = nextSemiMonthlyAnchor(current)
			return current
		}
	default: // weekly, bi-weekly
		step := 7
		if freq == domain.FrequencyBiWeekly {
			step = 14
		}
		n := 0
		return func() time.Time {
			d := start.AddDate(0, 0, n*step)
			n++
			return d
		}
	}
}

// roundCents rounds a dollar amount to two decimals.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
