// internal/repository/sqlstore/repaid_loan_sql.go
package sqlstore

import (
	"context"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/util"
)

const repaymentRecordQuery = `
		SELECT rl.funded_loan_id, lr.loan_id, lr.loan_amount, lr.interest, lr.deadline,
		       fl.funded_at, rl.repaid_at, rl.repayment_tx_hash, rl.days_early_late, rl.payment_category
		FROM repaid_loans rl
		JOIN funded_loans fl ON fl.funded_loan_id = rl.funded_loan_id
		JOIN loan_requests lr ON lr.id = fl.loan_request_id
		WHERE lr.borrower_id = ?
		ORDER BY rl.repaid_at DESC, rl.funded_loan_id`

// RepaidLoanRepository implements repository.RepaidLoanRepository with sqlx.
type RepaidLoanRepository struct{}

// NewRepaidLoanRepository creates a new RepaidLoanRepository.
func NewRepaidLoanRepository() repository.RepaidLoanRepository {
	return &RepaidLoanRepository{}
}

// CreateRepaidLoan inserts a repayment record. The unique funded_loan_id column is the last
// line of defence against a double repayment.
func (r *RepaidLoanRepository) CreateRepaidLoan(ctx context.Context, q repository.DBExecutor, repaid *domain.RepaidLoan) error {
	query := q.Rebind(`INSERT INTO repaid_loans
              (id, funded_loan_id, repaid_at, repayment_tx_hash, days_early_late, payment_category, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query,
		repaid.ID, repaid.FundedLoanID, repaid.RepaidAt, repaid.RepaymentTxHash,
		repaid.DaysEarlyLate, repaid.PaymentCategory, repaid.CreatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return util.ErrAlreadyRepaid
	case isForeignKeyViolation(err):
		return util.NotFound("funded loan", repaid.FundedLoanID)
	default:
		return util.Storage("create repaid loan", err)
	}
}

// ExistsForFundedLoan reports whether a repayment exists for the funded loan.
func (r *RepaidLoanRepository) ExistsForFundedLoan(ctx context.Context, q repository.DBExecutor, fundedLoanID string) (bool, error) {
	var count int
	query := q.Rebind(`SELECT COUNT(*) FROM repaid_loans WHERE funded_loan_id = ?`)
	if err := q.GetContext(ctx, &count, query, fundedLoanID); err != nil {
		return false, util.Storage("check repaid loan", err)
	}
	return count > 0, nil
}

// ListByBorrower returns the borrower's complete repayment history.
func (r *RepaidLoanRepository) ListByBorrower(ctx context.Context, q repository.DBExecutor, borrowerID string) ([]domain.RepaymentRecord, error) {
	records := []domain.RepaymentRecord{}
	if err := q.SelectContext(ctx, &records, q.Rebind(repaymentRecordQuery), borrowerID); err != nil {
		return nil, util.Storage("list repayments", err)
	}
	return records, nil
}

// PageByBorrower retrieves a paginated list of repayments for a borrower.
// It performs two queries: one for the data and one for the total count.
func (r *RepaidLoanRepository) PageByBorrower(ctx context.Context, q repository.DBExecutor, borrowerID string, limit, offset int) ([]domain.RepaymentRecord, int64, error) {
	records := []domain.RepaymentRecord{}
	query := q.Rebind(repaymentRecordQuery + ` LIMIT ? OFFSET ?`)
	if err := q.SelectContext(ctx, &records, query, borrowerID, limit, offset); err != nil {
		return nil, 0, util.Storage("page repayments", err)
	}

	var total int64
	countQuery := q.Rebind(`
		SELECT COUNT(*)
		FROM repaid_loans rl
		JOIN funded_loans fl ON fl.funded_loan_id = rl.funded_loan_id
		JOIN loan_requests lr ON lr.id = fl.loan_request_id
		WHERE lr.borrower_id = ?`)
	if err := q.GetContext(ctx, &total, countQuery, borrowerID); err != nil {
		return nil, 0, util.Storage("count repayments", err)
	}
	return records, total, nil
}
