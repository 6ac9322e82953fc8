package ibv

import (
	"fmt"
	"sort"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/loan"
	"github.com/kmoussai/flash-loan-sub005/internal/money"
)

// incomeCategories are the credit categories that count toward income
// estimation. Loan proceeds and transfers are deliberately excluded.
var incomeCategories = []domain.TransactionCategory{
	domain.CategorySalary,
	domain.CategoryEmploymentInsurance,
	domain.CategoryGovernmentBenefit,
	domain.CategoryPension,
	domain.CategoryOtherIncome,
}

// futurePaymentCount is how many upcoming payment dates to project per
// detected income stream.
const futurePaymentCount = 4

// avgDaysPerMonth converts a date span into months for span-based
// income averaging.
const avgDaysPerMonth = 30.44

// IncomeByCategory groups income credits by detected category and
// estimates a monthly amount per stream. When a cadence is detected,
// the estimate uses the frequency multiplier; otherwise it falls back
// to total over the observed date span. Future payment dates are
// projected forward from the latest transaction.
func IncomeByCategory(transactions []domain.CategorizedTransaction) []domain.IncomePattern {
	byCategory := make(map[domain.TransactionCategory][]domain.CategorizedTransaction)
	for _, tx := range transactions {
		if tx.CreditAmount() <= 0 {
			continue
		}
		for _, c := range incomeCategories {
			if tx.DetectedCategory == c {
				byCategory[c] = append(byCategory[c], tx)
				break
			}
		}
	}

	patterns := make([]domain.IncomePattern, 0, len(byCategory))
	for _, category := range incomeCategories { // stable output order
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		patterns = append(patterns, incomePattern(category, group))
	}
	return patterns
}

func incomePattern(category domain.TransactionCategory, group []domain.CategorizedTransaction) domain.IncomePattern {
	var total float64
	dates := make([]time.Time, 0, len(group))
	for _, tx := range group {
		total += tx.CreditAmount()
		if d, ok := loan.ParseDate(tx.Date); ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })

	avgAmount := total / float64(len(group))
	freq := detectFrequency(dates, DefaultRefineConfig().IntervalSlackDays)

	var monthly float64
	switch freq {
	case domain.FrequencyWeekly:
		monthly = avgAmount * 52 / 12
	case domain.FrequencyBiWeekly:
		monthly = avgAmount * 26 / 12
	case domain.FrequencyTwiceMonthly:
		monthly = avgAmount * 2
	case domain.FrequencyMonthly:
		monthly = avgAmount
	default:
		monthly = spanBasedMonthly(total, dates)
	}

	detail := fmt.Sprintf("%s average deposit", money.FormatCAD(avgAmount))
	if freq != "" {
		detail = fmt.Sprintf("%s %s", money.FormatCAD(avgAmount), freq)
	}

	return domain.IncomePattern{
		Category:         category,
		Frequency:        freq,
		Detail:           detail,
		MonthlyIncome:    money.Round(monthly),
		NextPaymentDates: projectFutureDates(dates, freq),
	}
}

// spanBasedMonthly averages the total over the observed span when no
// cadence was detected. A single dated deposit (or none) is treated as
// one month's worth rather than dividing by zero.
func spanBasedMonthly(total float64, dates []time.Time) float64 {
	if len(dates) < 2 {
		return total
	}
	spanDays := dates[len(dates)-1].Sub(dates[0]).Hours() / 24
	if spanDays < 1 {
		return total
	}
	return total / (spanDays / avgDaysPerMonth)
}

// projectFutureDates extends the detected cadence past the most recent
// deposit. Without a detected frequency there is nothing to project.
func projectFutureDates(dates []time.Time, freq domain.PaymentFrequency) []string {
	if len(dates) == 0 || freq == "" {
		return nil
	}
	last := dates[len(dates)-1]

	out := make([]string, 0, futurePaymentCount)
	current := last
	for i := 0; i < futurePaymentCount; i++ {
		switch freq {
		case domain.FrequencyWeekly:
			current = current.AddDate(0, 0, 7)
		case domain.FrequencyBiWeekly:
			current = current.AddDate(0, 0, 14)
		case domain.FrequencyTwiceMonthly:
			current = nextSemiMonthly(current)
		case domain.FrequencyMonthly:
			current = current.AddDate(0, 1, 0)
		}
		out = append(out, current.Format(loan.DateLayout))
	}
	return out
}

// nextSemiMonthly advances to the next 15th/last-day anchor. Unlike
// the schedule generator the input here is a real deposit date that
// may sit a day or two off the anchor, so it snaps rather than
// alternates.
func nextSemiMonthly(t time.Time) time.Time {
	last := loan.LastDayOfMonth(t)
	if t.Day() < 15 {
		return time.Date(t.Year(), t.Month(), 15, 0, 0, 0, 0, t.Location())
	}
	if t.Day() < last.Day() {
		return last
	}
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), 15, 0, 0, 0, 0, t.Location())
}

// NSFCounts buckets NSF fees into rolling windows ending at asOf. The
// clock is injected so results are reproducible; window membership
// requires a parseable date, all-time does not.
func NSFCounts(transactions []domain.CategorizedTransaction, asOf time.Time) domain.NSFCounts {
	var counts domain.NSFCounts
	cutoff3 := asOf.AddDate(0, -3, 0)
	cutoff6 := asOf.AddDate(0, -6, 0)
	cutoff9 := asOf.AddDate(0, -9, 0)
	cutoff12 := asOf.AddDate(0, -12, 0)

	for _, tx := range transactions {
		if tx.DetectedCategory != domain.CategoryNSFFee {
			continue
		}
		counts.AllTime++

		d, ok := loan.ParseDate(tx.Date)
		if !ok || d.After(asOf) {
			continue
		}
		if !d.Before(cutoff3) {
			counts.Last3Months++
		}
		if !d.Before(cutoff6) {
			counts.Last6Months++
		}
		if !d.Before(cutoff9) {
			counts.Last9Months++
		}
		if !d.Before(cutoff12) {
			counts.Last12Months++
		}
	}
	return counts
}

// AccountInput is one provider account with its raw transaction feed,
// already adapted from the provider wire format.
type AccountInput struct {
	Info         domain.BankAccountInfo
	Transactions []domain.BankTransaction
}

// Summarize runs the full pipeline for an application: categorize each
// account's feed, refine by pattern, derive income streams and NSF
// history. asOf anchors every date-window computation; pass the wall
// clock only at the outermost call site.
//
// An account with no transactions yields empty income and zero NSF
// counts, never an error.
func Summarize(applicationID, provider string, accounts []AccountInput, asOf time.Time) domain.IBVSummary {
	cfg := DefaultRefineConfig()

	summaries := make([]domain.AccountSummary, 0, len(accounts))
	for _, acct := range accounts {
		categorized := RefineByPattern(Categorize(acct.Transactions), cfg)

		income := IncomeByCategory(categorized)
		var net float64
		for _, p := range income {
			net += p.MonthlyIncome
		}

		summaries = append(summaries, domain.AccountSummary{
			BankAccountInfo: acct.Info,
			Income:          income,
			NetIncome:       money.Round(net),
			NSF:             NSFCounts(categorized, asOf),
		})
	}

	return domain.IBVSummary{
		ApplicationID: applicationID,
		Provider:      provider,
		Accounts:      summaries,
		GeneratedAt:   asOf,
	}
}
