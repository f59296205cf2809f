// internal/repository/funded_loan_repo.go
package repository

import (
	"context"

	"chainlend-ledger/internal/domain"
)

// FundedLoanRepository defines the interface for funded loan data operations.
type FundedLoanRepository interface {
	// CreateFundedLoan inserts the funded loan unless its funded loan id exists.
	// It reports whether a row was inserted.
	CreateFundedLoan(ctx context.Context, q DBExecutor, loan *domain.FundedLoan) (bool, error)
	// AddFundingUtxos records the source outputs of a funded loan. Known outputs are skipped.
	AddFundingUtxos(ctx context.Context, q DBExecutor, fundedLoanID string, utxos []domain.FundingUtxo) error
	// ListFundingUtxos returns the source outputs of a funded loan.
	ListFundingUtxos(ctx context.Context, q DBExecutor, fundedLoanID string) ([]domain.FundingUtxo, error)
	// GetFundedLoanDetail retrieves a funded loan joined with its loan request.
	GetFundedLoanDetail(ctx context.Context, q DBExecutor, fundedLoanID string) (*domain.FundedLoanDetail, error)
	// DeactivateFundedLoan clears is_active on one funded loan. Inside a transaction this
	// also locks the row. It returns util.ErrNotFound for an unknown id.
	DeactivateFundedLoan(ctx context.Context, q DBExecutor, fundedLoanID string) error
	// DeactivateByLoanRequest clears is_active on every funding of a loan request.
	DeactivateByLoanRequest(ctx context.Context, q DBExecutor, loanRequestID string) (int64, error)
	// DeactivateAllExcept clears is_active on every active funded loan not listed in keep.
	DeactivateAllExcept(ctx context.Context, q DBExecutor, keep []string) (int64, error)
	// ListActiveFundedLoanIDs returns the ids of every active funded loan.
	ListActiveFundedLoanIDs(ctx context.Context, q DBExecutor) ([]string, error)
	// ListUserLoans returns the funded loans a wallet took part in, as borrower or lender.
	ListUserLoans(ctx context.Context, q DBExecutor, walletID string, activeOnly bool) ([]domain.UserLoan, error)
}
