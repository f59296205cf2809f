// internal/repository/sqlstore/loan_request_sql.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/util"
)

const loanRequestColumns = `id, loan_id, borrower_id, loan_amount, interest, deadline, status, created_at, updated_at`

// LoanRequestRepository implements repository.LoanRequestRepository with sqlx.
type LoanRequestRepository struct{}

// NewLoanRequestRepository creates a new LoanRequestRepository.
func NewLoanRequestRepository() repository.LoanRequestRepository {
	return &LoanRequestRepository{}
}

// CreateLoanRequest inserts a loan request; an existing loan id leaves the table unchanged.
func (r *LoanRequestRepository) CreateLoanRequest(ctx context.Context, q repository.DBExecutor, req *domain.LoanRequest) (bool, error) {
	query := q.Rebind(`INSERT INTO loan_requests (` + loanRequestColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (loan_id) DO NOTHING`)
	result, err := q.ExecContext(ctx, query,
		req.ID, req.LoanID, req.BorrowerID, req.LoanAmount, req.Interest,
		req.Deadline, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, util.NotFound("wallet", req.BorrowerID)
		}
		return false, util.Storage("create loan request", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, util.Storage("create loan request rows affected", err)
	}
	return rows > 0, nil
}

// GetLoanRequestByLoanID retrieves a loan request by its loan id.
func (r *LoanRequestRepository) GetLoanRequestByLoanID(ctx context.Context, q repository.DBExecutor, loanID string) (*domain.LoanRequest, error) {
	var req domain.LoanRequest
	query := q.Rebind(`SELECT ` + loanRequestColumns + ` FROM loan_requests WHERE loan_id = ?`)
	if err := q.GetContext(ctx, &req, query, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("loan request", loanID)
		}
		return nil, util.Storage("get loan request", err)
	}
	return &req, nil
}

// TransitionStatus is a compare-and-set on the status column.
func (r *LoanRequestRepository) TransitionStatus(ctx context.Context, q repository.DBExecutor, id string, to domain.LoanStatus, from ...domain.LoanStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	query, args, err := sqlx.In(`UPDATE loan_requests SET status = ?, updated_at = ? WHERE id = ? AND status IN (?)`,
		to, nowMillis(), id, from)
	if err != nil {
		return false, util.Storage("build loan status update", err)
	}
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return false, util.Storage("update loan status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, util.Storage("update loan status rows affected", err)
	}
	return rows > 0, nil
}
