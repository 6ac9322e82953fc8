// Package ibv derives lending signals from raw bank-transaction feeds:
// per-transaction categorization, recurring-pattern refinement, income
// estimation and NSF history.
//
// Like internal/loan, everything in this package is pure. The input
// feed is never mutated; malformed transactions degrade to low
// confidence instead of failing the batch.
package ibv

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
)

// Confidence levels assigned by the keyword cascade. Rules earlier in
// the cascade are more specific and score higher; the refinement pass
// (see refine.go) can later upgrade weak matches that recur.
const (
	confNSF          = 0.98
	confOverdraft    = 0.98
	confEI           = 0.97
	confGovBenefit   = 0.95
	confBankFee      = 0.95
	confLoanPayment  = 0.93
	confSalaryStrong = 0.92
	confLoanReceived = 0.90
	confRent         = 0.90
	confPension      = 0.88
	confUtilities    = 0.88
	confInsurance    = 0.87
	confTransfer     = 0.85
	confSubscription = 0.82
	confSalaryWeak   = 0.75
	confFallbackMid  = 0.55
	confFallbackLoan = 0.50
	confFallbackLow  = 0.45
	confDefault      = 0.30
	confUnknown      = 0.10
)

var (
	nsfKeywords = []string{"nsf", "non-sufficient", "insufficient funds", "returned item", "chargeback"}

	overdraftKeywords = []string{"overdraft"}

	bankFeeKeywords = []string{"service charge", "monthly fee", "account fee", "transaction fee", "atm fee", "bank fee"}

	// Bilingual: Quebec feeds mix French and English descriptions.
	eiKeywords = []string{"employment insurance", "assurance-emploi", "assurance emploi", "ei canada", "ei benefit"}

	govBenefitKeywords = []string{
		"canada fed", "canada pro", "canada rit", "canada rtc",
		"ccb", "child benefit", "gst/hst", "gst credit", "trillium",
		"climate action", "carbon rebate", "old age security", "cpp", "qpp",
	}

	pensionKeywords = []string{"pension", "retraite", "retirement income", "annuity"}

	// Pension contributions and transfers into retirement accounts are
	// outflows, not income.
	pensionExclusions = []string{"contribution", "deposit to", "transfer to", "cotisation"}

	salaryKeywords = []string{"payroll", "pay roll", "salary", "salaire", "paie", "direct deposit pay", "paycheque", "paycheck"}

	corporateSuffixes = []string{" inc", " ltd", " corp", " llc", " ltée", " ltee", " limited", " services", " group"}

	loanPaymentKeywords = []string{"loan payment", "loan pmt", "lending", "finance pmt", "pret", "prêt", "installment", "instalment"}

	loanReceivedKeywords = []string{"loan deposit", "loan proceeds", "loan advance", "lending deposit", "avance de fonds"}

	lenderNames = []string{"mogo", "fairstone", "easyfinancial", "spring financial", "money mart", "cash money", "icash", "nyble", "bree"}

	transferKeywords = []string{"e-transfer", "etransfer", "interac", "virement", "transfer", "tfr"}

	rentKeywords = []string{"rent", "loyer", "property management", "immobilier", "realty"}

	utilitiesKeywords = []string{
		"hydro", "energir", "enbridge", "fortis", "epcor",
		"telus", "rogers", "bell", "videotron", "koodo", "fido", "freedom mobile",
		"internet", "wireless", "utility", "utilities",
	}

	insuranceKeywords = []string{"insurance", "assurance", "intact", "desjardins assur", "sun life", "manulife", "wawanesa"}

	subscriptionKeywords = []string{
		"netflix", "spotify", "disney", "crave", "amazon prime", "prime video",
		"apple.com/bill", "youtube premium", "gym", "fitness", "subscription", "abonnement",
	}
)

// Categorize runs the keyword cascade over every transaction and
// returns the feed annotated with a category and confidence. Order in
// the cascade matters: the first matching rule wins, and rules are
// ordered most-specific first so "NSF fee - overdraft" reads as an NSF
// fee, not an overdraft fee.
func Categorize(transactions []domain.BankTransaction) []domain.CategorizedTransaction {
	out := make([]domain.CategorizedTransaction, 0, len(transactions))
	for _, tx := range transactions {
		category, confidence := categorizeOne(tx)
		out = append(out, domain.CategorizedTransaction{
			BankTransaction:  tx,
			DetectedCategory: category,
			Confidence:       confidence,
		})
	}
	return out
}

func categorizeOne(tx domain.BankTransaction) (domain.TransactionCategory, float64) {
	desc := strings.ToLower(tx.Description)
	credit := tx.CreditAmount()
	debit := tx.DebitAmount()

	// Fees are debits and always take priority: a $45 "NSF fee" must
	// never be read as anything else, whatever else the description says.
	if debit > 0 {
		if containsAny(desc, nsfKeywords) {
			return domain.CategoryNSFFee, confNSF
		}
		if containsAny(desc, overdraftKeywords) {
			return domain.CategoryOverdraftFee, confOverdraft
		}
		if debit < 100 && containsAny(desc, bankFeeKeywords) {
			return domain.CategoryBankFee, confBankFee
		}
	}

	if credit > 0 {
		if containsAny(desc, eiKeywords) {
			return domain.CategoryEmploymentInsurance, confEI
		}
		if containsAny(desc, govBenefitKeywords) {
			return domain.CategoryGovernmentBenefit, confGovBenefit
		}
		if containsAny(desc, pensionKeywords) && !containsAny(desc, pensionExclusions) {
			return domain.CategoryPension, confPension
		}
		if credit >= 500 && containsAny(desc, salaryKeywords) {
			return domain.CategorySalary, confSalaryStrong
		}
		// Large corporate deposits without payroll wording are a weak
		// salary signal; refinement promotes them if they recur.
		if credit >= 1000 && containsAny(desc, corporateSuffixes) {
			return domain.CategorySalary, confSalaryWeak
		}
	}

	if debit > 0 && (containsAny(desc, loanPaymentKeywords) || containsAny(desc, lenderNames)) {
		return domain.CategoryLoanPayment, confLoanPayment
	}
	if credit > 0 && (containsAny(desc, loanReceivedKeywords) || containsAny(desc, lenderNames)) {
		return domain.CategoryLoanReceived, confLoanReceived
	}

	if containsAny(desc, transferKeywords) {
		return domain.CategoryTransfer, confTransfer
	}

	if debit >= 500 && containsAny(desc, rentKeywords) {
		return domain.CategoryRent, confRent
	}
	if debit >= 20 && debit <= 500 && containsAny(desc, utilitiesKeywords) {
		return domain.CategoryUtilities, confUtilities
	}
	if debit >= 30 && containsAny(desc, insuranceKeywords) {
		return domain.CategoryInsurance, confInsurance
	}
	if debit >= 5 && debit <= 150 && containsAny(desc, subscriptionKeywords) {
		return domain.CategorySubscription, confSubscription
	}

	// Amount-shape fallbacks for transactions with no keyword signal.
	if credit >= 1500 {
		return domain.CategorySalary, confFallbackMid
	}
	if credit >= 800 {
		return domain.CategorySalary, confFallbackLow
	}
	if debit >= 100 && debit <= 2000 && roundsToFifty(debit) {
		// Round-number debits in the personal-loan range look like
		// fixed installments.
		return domain.CategoryLoanPayment, confFallbackLoan
	}

	if credit > 0 {
		return domain.CategoryOtherIncome, confDefault
	}
	if debit > 0 {
		return domain.CategoryOtherExpense, confDefault
	}
	return domain.CategoryUnknown, confUnknown
}

// roundsToFifty reports whether the amount is within $10 of a multiple
// of $50.
func roundsToFifty(amount float64) bool {
	nearest := math.Round(amount/50) * 50
	return math.Abs(amount-nearest) <= 10
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if matchesKeyword(s, k) {
			return true
		}
	}
	return false
}

// matchesKeyword matches multi-word phrases as plain substrings, but
// single tokens must land on word boundaries: "nsf" occurs inside
// "transfer" and "bell" inside "belleville", so a raw substring test
// would misfire on ordinary descriptions.
func matchesKeyword(s, k string) bool {
	if strings.Contains(k, " ") {
		return strings.Contains(s, k)
	}
	return containsWord(s, k)
}

// containsWord reports whether w occurs in s delimited by non-word
// characters or the string edges. Both are already lowercased.
func containsWord(s, w string) bool {
	for i := 0; i+len(w) <= len(s); i++ {
		if s[i:i+len(w)] != w {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		if end := i + len(w); end < len(s) && isWordByte(s[end]) {
			continue
		}
		return true
	}
	return false
}

// isWordByte treats lowercase letters, digits and any multi-byte rune
// as word characters; punctuation and spaces delimit words.
func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b >= utf8.RuneSelf
}
