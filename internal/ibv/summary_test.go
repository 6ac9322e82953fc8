package ibv_test

import (
	"testing"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/ibv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nsfAt(date string) domain.CategorizedTransaction {
	amt := 48.0
	return domain.CategorizedTransaction{
		BankTransaction:  domain.BankTransaction{Date: date, Description: "NSF FEE", Debit: &amt},
		DetectedCategory: domain.CategoryNSFFee,
		Confidence:       0.98,
	}
}

func salaryAt(date string, amount float64) domain.CategorizedTransaction {
	return domain.CategorizedTransaction{
		BankTransaction:  domain.BankTransaction{Date: date, Description: "PAYROLL", Credit: &amount},
		DetectedCategory: domain.CategorySalary,
		Confidence:       0.92,
	}
}

func TestNSFCounts_Buckets(t *testing.T) {
	asOf := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	txs := []domain.CategorizedTransaction{
		nsfAt("2024-05-20"), // within 3mo
		nsfAt("2024-02-10"), // within 6mo
		nsfAt("2023-10-05"), // within 9mo
		nsfAt("2023-07-20"), // within 12mo
		nsfAt("2022-01-01"), // all-time only
		nsfAt("not-a-date"), // all-time only, no window
	}

	got := ibv.NSFCounts(txs, asOf)
	assert.Equal(t, 1, got.Last3Months)
	assert.Equal(t, 2, got.Last6Months)
	assert.Equal(t, 3, got.Last9Months)
	assert.Equal(t, 4, got.Last12Months)
	assert.Equal(t, 6, got.AllTime)
}

func TestNSFCounts_ReproducibleAndOrdered(t *testing.T) {
	asOf := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	txs := []domain.CategorizedTransaction{
		nsfAt("2024-06-01"), nsfAt("2024-01-15"), nsfAt("2023-09-01"),
		salaryAt("2024-06-01", 1200),
	}

	first := ibv.NSFCounts(txs, asOf)
	second := ibv.NSFCounts(txs, asOf)
	assert.Equal(t, first, second)

	assert.LessOrEqual(t, first.Last3Months, first.Last6Months)
	assert.LessOrEqual(t, first.Last6Months, first.Last9Months)
	assert.LessOrEqual(t, first.Last9Months, first.Last12Months)
	assert.LessOrEqual(t, first.Last12Months, first.AllTime)
}

func TestNSFCounts_IgnoresFutureDates(t *testing.T) {
	asOf := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	got := ibv.NSFCounts([]domain.CategorizedTransaction{nsfAt("2024-07-01")}, asOf)
	assert.Equal(t, 0, got.Last3Months)
	assert.Equal(t, 1, got.AllTime)
}

func TestIncomeByCategory_BiWeeklySalary(t *testing.T) {
	txs := []domain.CategorizedTransaction{
		salaryAt("2024-03-01", 1200),
		salaryAt("2024-03-15", 1200),
		salaryAt("2024-03-29", 1200),
	}

	patterns := ibv.IncomeByCategory(txs)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Equal(t, domain.CategorySalary, p.Category)
	assert.Equal(t, domain.FrequencyBiWeekly, p.Frequency)
	assert.InDelta(t, 1200*26.0/12.0, p.MonthlyIncome, 0.01)
	require.Len(t, p.NextPaymentDates, 4)
	assert.Equal(t, "2024-04-12", p.NextPaymentDates[0])
	assert.Equal(t, "2024-04-26", p.NextPaymentDates[1])
}

func TestIncomeByCategory_TwiceMonthlyProjection(t *testing.T) {
	txs := []domain.CategorizedTransaction{
		salaryAt("2024-01-15", 950),
		salaryAt("2024-01-31", 950),
		salaryAt("2024-02-15", 950),
		salaryAt("2024-02-29", 950),
	}

	patterns := ibv.IncomeByCategory(txs)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Equal(t, domain.FrequencyTwiceMonthly, p.Frequency)
	assert.InDelta(t, 1900, p.MonthlyIncome, 0.01)
	require.Len(t, p.NextPaymentDates, 4)
	assert.Equal(t, "2024-03-15", p.NextPaymentDates[0])
	assert.Equal(t, "2024-03-31", p.NextPaymentDates[1])
	assert.Equal(t, "2024-04-15", p.NextPaymentDates[2])
	assert.Equal(t, "2024-04-30", p.NextPaymentDates[3])
}

func TestIncomeByCategory_SpanFallbackWithoutCadence(t *testing.T) {
	// Irregular spacing: no frequency, estimate from the date span.
	txs := []domain.CategorizedTransaction{
		salaryAt("2024-01-01", 1000),
		salaryAt("2024-01-20", 1000),
		salaryAt("2024-03-02", 1000),
	}

	patterns := ibv.IncomeByCategory(txs)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Empty(t, p.Frequency)
	// 3000 over a 61-day span.
	assert.InDelta(t, 3000/(61/30.44), p.MonthlyIncome, 0.01)
	assert.Empty(t, p.NextPaymentDates)
}

func TestIncomeByCategory_ExcludesNonIncome(t *testing.T) {
	loan := 750.0
	txs := []domain.CategorizedTransaction{
		{
			BankTransaction:  domain.BankTransaction{Date: "2024-04-01", Description: "LOAN PROCEEDS", Credit: &loan},
			DetectedCategory: domain.CategoryLoanReceived,
			Confidence:       0.90,
		},
		nsfAt("2024-04-02"),
	}
	assert.Empty(t, ibv.IncomeByCategory(txs))
}

func TestSummarize_FullPipeline(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)

	raw := []domain.BankTransaction{
		credit("2024-03-01", "PAYROLL DEPOSIT ACME", 1500),
		credit("2024-03-15", "PAYROLL DEPOSIT ACME", 1500),
		credit("2024-03-29", "PAYROLL DEPOSIT ACME", 1500),
		credit("2024-04-12", "PAYROLL DEPOSIT ACME", 1500),
		debit("2024-03-20", "NSF FEE", 48),
		debit("2024-04-03", "HYDRO QUEBEC", 92.10),
	}

	summary := ibv.Summarize("app-123", "zumrails", []ibv.AccountInput{
		{
			Info:         domain.BankAccountInfo{BankName: "Desjardins", AccountType: "chequing"},
			Transactions: raw,
		},
	}, asOf)

	assert.Equal(t, "app-123", summary.ApplicationID)
	assert.Equal(t, "zumrails", summary.Provider)
	assert.Equal(t, asOf, summary.GeneratedAt)
	require.Len(t, summary.Accounts, 1)

	acct := summary.Accounts[0]
	assert.Equal(t, "Desjardins", acct.BankName)
	assert.Equal(t, 1, acct.NSF.Last3Months)
	assert.Equal(t, 1, acct.NSF.AllTime)

	require.Len(t, acct.Income, 1)
	income := acct.Income[0]
	assert.Equal(t, domain.CategorySalary, income.Category)
	assert.Equal(t, domain.FrequencyBiWeekly, income.Frequency)
	assert.InDelta(t, 1500*26.0/12.0, income.MonthlyIncome, 0.01)
	assert.Equal(t, acct.NetIncome, income.MonthlyIncome)
}

func TestSummarize_EmptyAccount(t *testing.T) {
	asOf := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)
	summary := ibv.Summarize("app-9", "zumrails", []ibv.AccountInput{
		{Info: domain.BankAccountInfo{BankName: "RBC"}},
	}, asOf)

	require.Len(t, summary.Accounts, 1)
	assert.Empty(t, summary.Accounts[0].Income)
	assert.Equal(t, domain.NSFCounts{}, summary.Accounts[0].NSF)
	assert.Zero(t, summary.Accounts[0].NetIncome)
}
