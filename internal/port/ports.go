// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/ibv"
)

// LoanStore defines all data operations for applications and loans.
// Implemented by the Supabase adapter (or any other persistence layer).
type LoanStore interface {
	// Applications
	GetApplication(ctx context.Context, applicationID string) (*domain.LoanApplication, error)
	UpdateApplicationStatus(ctx context.Context, applicationID, status string) error

	// Contract terms (the persisted schedule artifact)
	SaveContractTerms(ctx context.Context, terms *domain.ContractTerms) error
	GetContractTerms(ctx context.Context, applicationID string) (*domain.ContractTerms, error)

	// Active loans
	GetLoan(ctx context.Context, loanID string) (*domain.Loan, error)
	UpdateLoanBalance(ctx context.Context, loanID string, balance float64, status string) error
	SaveLoanSchedule(ctx context.Context, loanID string, schedule []domain.PaymentBreakdown) error
}

// IBVStore persists verification feeds and derived summaries.
type IBVStore interface {
	SaveTransactions(ctx context.Context, applicationID string, accounts []ibv.AccountInput) error
	GetTransactions(ctx context.Context, applicationID string) ([]ibv.AccountInput, error)
	SaveSummary(ctx context.Context, summary *domain.IBVSummary) error
	GetSummary(ctx context.Context, applicationID string) (*domain.IBVSummary, error)
}

// VerificationProvider fetches accounts and raw transactions from the
// bank-verification vendor, already adapted to the domain shape.
type VerificationProvider interface {
	FetchAccounts(ctx context.Context, requestID string) ([]domain.BankAccountInfo, error)
	FetchTransactions(ctx context.Context, requestID, accountID string) ([]domain.BankTransaction, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
