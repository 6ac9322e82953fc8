package domain

import "time"

// ============================================================
// Bank verification (IBV) — transactions & categorization
// ============================================================

// TransactionCategory is the closed set of semantic categories the
// categorizer can assign.
type TransactionCategory string

const (
	CategorySalary              TransactionCategory = "salary"
	CategoryEmploymentInsurance TransactionCategory = "employment_insurance"
	CategoryGovernmentBenefit   TransactionCategory = "government_benefit"
	CategoryPension             TransactionCategory = "pension"
	CategoryLoanPayment         TransactionCategory = "loan_payment"
	CategoryLoanReceived        TransactionCategory = "loan_received"
	CategoryNSFFee              TransactionCategory = "nsf_fee"
	CategoryOverdraftFee        TransactionCategory = "overdraft_fee"
	CategoryBankFee             TransactionCategory = "bank_fee"
	CategoryTransfer            TransactionCategory = "transfer"
	CategoryRent                TransactionCategory = "rent"
	CategoryUtilities           TransactionCategory = "utilities"
	CategoryInsurance           TransactionCategory = "insurance"
	CategorySubscription        TransactionCategory = "subscription"
	CategoryOtherIncome         TransactionCategory = "other_income"
	CategoryOtherExpense        TransactionCategory = "other_expense"
	CategoryUnknown             TransactionCategory = "unknown"
)

// BankTransaction is one raw transaction from a verification provider.
// Credit and Debit are both optional; exactly one is expected to be
// meaningfully non-zero per transaction. The dual-field shape mirrors
// the provider wire format so the feed can be stored and replayed
// without loss.
type BankTransaction struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Description string   `json:"description"`
	Credit      *float64 `json:"credit,omitempty"`
	Debit       *float64 `json:"debit,omitempty"`
	Balance     float64  `json:"balance"`
	Category    string   `json:"category,omitempty"` // provider-supplied, free-form
}

// CreditAmount returns the credit value, or 0 when absent.
func (t BankTransaction) CreditAmount() float64 {
	if t.Credit != nil {
		return *t.Credit
	}
	return 0
}

// DebitAmount returns the debit value, or 0 when absent.
func (t BankTransaction) DebitAmount() float64 {
	if t.Debit != nil {
		return *t.Debit
	}
	return 0
}

// CategorizedTransaction is a BankTransaction plus the categorizer's verdict.
type CategorizedTransaction struct {
	BankTransaction
	DetectedCategory TransactionCategory `json:"detected_category"`
	Confidence       float64             `json:"confidence"`
}

// IncomePattern is one recurring income stream inferred for an account.
type IncomePattern struct {
	Category         TransactionCategory `json:"category"`
	Frequency        PaymentFrequency    `json:"frequency,omitempty"` // empty when undetected
	Detail           string              `json:"detail"`
	MonthlyIncome    float64             `json:"estimated_monthly_income"`
	NextPaymentDates []string            `json:"next_payment_dates"`
}

// NSFCounts buckets NSF fees into trailing windows relative to an
// explicit as-of time. The buckets are cumulative: 3mo ⩽ 6mo ⩽ 9mo ⩽
// 12mo ⩽ all-time.
type NSFCounts struct {
	Last3Months  int `json:"last_3_months"`
	Last6Months  int `json:"last_6_months"`
	Last9Months  int `json:"last_9_months"`
	Last12Months int `json:"last_12_months"`
	AllTime      int `json:"all_time"`
}

// BankAccountInfo identifies one account in a verification result.
type BankAccountInfo struct {
	BankName      string `json:"bank_name"`
	AccountType   string `json:"account_type"`
	AccountNumber string `json:"account_number"`
	Transit       string `json:"transit"`
	Institution   string `json:"institution"`
	RoutingCode   string `json:"routing_code"`
}

// AccountSummary is the derived verification summary for one account.
type AccountSummary struct {
	BankAccountInfo
	Income    []IncomePattern `json:"income"`
	NetIncome float64         `json:"net_monthly_income"`
	NSF       NSFCounts       `json:"nsf_counts"`
}

// IBVSummary is the full verification summary stored per application.
// It is derived entirely from the raw transaction feed and recomputed
// on demand, never incrementally updated.
type IBVSummary struct {
	ApplicationID string           `json:"application_id"`
	Provider      string           `json:"provider"`
	Accounts      []AccountSummary `json:"accounts"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// OpsMetrics is the snapshot exposed on the admin metrics endpoint.
type OpsMetrics struct {
	SchedulesComputed       int64   `json:"schedules_computed"`
	TransactionsCategorized int64   `json:"transactions_categorized"`
	ExternalErrors          int64   `json:"external_errors"`
	CacheHitRate            float64 `json:"cache_hit_rate"`
}
