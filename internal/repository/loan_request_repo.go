// internal/repository/loan_request_repo.go
package repository

import (
	"context"

	"chainlend-ledger/internal/domain"
)

// LoanRequestRepository defines the interface for loan request data operations.
type LoanRequestRepository interface {
	// CreateLoanRequest inserts the request unless its loan id exists. It reports whether a row was inserted.
	CreateLoanRequest(ctx context.Context, q DBExecutor, req *domain.LoanRequest) (bool, error)
	// GetLoanRequestByLoanID retrieves a loan request by its external loan id.
	GetLoanRequestByLoanID(ctx context.Context, q DBExecutor, loanID string) (*domain.LoanRequest, error)
	// TransitionStatus moves the request to status `to` only when its current status is one of `from`.
	// It reports whether the row changed.
	TransitionStatus(ctx context.Context, q DBExecutor, id string, to domain.LoanStatus, from ...domain.LoanStatus) (bool, error)
}
