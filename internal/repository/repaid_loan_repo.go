// internal/repository/repaid_loan_repo.go
package repository

import (
	"context"

	"chainlend-ledger/internal/domain"
)

// RepaidLoanRepository defines the interface for repayment data operations.
type RepaidLoanRepository interface {
	// CreateRepaidLoan inserts a repayment. A second repayment of the same funded loan
	// fails with util.ErrAlreadyRepaid.
	CreateRepaidLoan(ctx context.Context, q DBExecutor, repaid *domain.RepaidLoan) error
	// ExistsForFundedLoan reports whether the funded loan was already repaid.
	ExistsForFundedLoan(ctx context.Context, q DBExecutor, fundedLoanID string) (bool, error)
	// ListByBorrower returns every repayment of loans the borrower took out, newest first.
	ListByBorrower(ctx context.Context, q DBExecutor, borrowerID string) ([]domain.RepaymentRecord, error)
	// PageByBorrower returns one page of ListByBorrower and the total count.
	PageByBorrower(ctx context.Context, q DBExecutor, borrowerID string, limit, offset int) ([]domain.RepaymentRecord, int64, error)
}
