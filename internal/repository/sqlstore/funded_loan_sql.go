// internal/repository/sqlstore/funded_loan_sql.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/util"
)

const fundedLoanColumns = `fl.id, fl.funded_loan_id, fl.loan_request_id, fl.lender_id, fl.funded_at,
       fl.tx_hash, fl.is_active, fl.created_at, fl.updated_at`

// FundedLoanRepository implements repository.FundedLoanRepository with sqlx.
type FundedLoanRepository struct{}

// NewFundedLoanRepository creates a new FundedLoanRepository.
func NewFundedLoanRepository() repository.FundedLoanRepository {
	return &FundedLoanRepository{}
}

// CreateFundedLoan inserts a funded loan. Two concurrent inserts of the same funded loan id
// resolve to one row; the loser sees false.
func (r *FundedLoanRepository) CreateFundedLoan(ctx context.Context, q repository.DBExecutor, loan *domain.FundedLoan) (bool, error) {
	query := q.Rebind(`INSERT INTO funded_loans
              (id, funded_loan_id, loan_request_id, lender_id, funded_at, tx_hash, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (funded_loan_id) DO NOTHING`)
	result, err := q.ExecContext(ctx, query,
		loan.ID, loan.FundedLoanID, loan.LoanRequestID, loan.LenderID, loan.FundedAt,
		loan.TxHash, loan.IsActive, loan.CreatedAt, loan.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, util.NotFound("loan request or lender for funded loan", loan.FundedLoanID)
		}
		return false, util.Storage("create funded loan", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, util.Storage("create funded loan rows affected", err)
	}
	return rows > 0, nil
}

// AddFundingUtxos inserts the funding outputs one by one.
func (r *FundedLoanRepository) AddFundingUtxos(ctx context.Context, q repository.DBExecutor, fundedLoanID string, utxos []domain.FundingUtxo) error {
	query := q.Rebind(`INSERT INTO funding_utxos (funded_loan_id, tx_hash, output_index)
              VALUES (?, ?, ?)
              ON CONFLICT (funded_loan_id, tx_hash, output_index) DO NOTHING`)
	for _, u := range utxos {
		if _, err := q.ExecContext(ctx, query, fundedLoanID, u.TxHash, u.OutputIndex); err != nil {
			return util.Storage(fmt.Sprintf("add funding utxo %s#%d", u.TxHash, u.OutputIndex), err)
		}
	}
	return nil
}

// ListFundingUtxos returns the funding outputs ordered by tx hash and index.
func (r *FundedLoanRepository) ListFundingUtxos(ctx context.Context, q repository.DBExecutor, fundedLoanID string) ([]domain.FundingUtxo, error) {
	utxos := []domain.FundingUtxo{}
	query := q.Rebind(`SELECT funded_loan_id, tx_hash, output_index FROM funding_utxos
              WHERE funded_loan_id = ? ORDER BY tx_hash, output_index`)
	if err := q.SelectContext(ctx, &utxos, query, fundedLoanID); err != nil {
		return nil, util.Storage("list funding utxos", err)
	}
	return utxos, nil
}

// GetFundedLoanDetail retrieves a funded loan with the terms of its loan request.
func (r *FundedLoanRepository) GetFundedLoanDetail(ctx context.Context, q repository.DBExecutor, fundedLoanID string) (*domain.FundedLoanDetail, error) {
	var detail domain.FundedLoanDetail
	query := q.Rebind(`
		SELECT ` + fundedLoanColumns + `,
		       lr.loan_id, lr.borrower_id, lr.deadline, lr.status AS loan_status, lr.loan_amount, lr.interest
		FROM funded_loans fl
		JOIN loan_requests lr ON lr.id = fl.loan_request_id
		WHERE fl.funded_loan_id = ?`)
	if err := q.GetContext(ctx, &detail, query, fundedLoanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("funded loan", fundedLoanID)
		}
		return nil, util.Storage("get funded loan", err)
	}
	return &detail, nil
}

// DeactivateFundedLoan marks one funded loan inactive. The row counts as matched even if
// it was already inactive.
func (r *FundedLoanRepository) DeactivateFundedLoan(ctx context.Context, q repository.DBExecutor, fundedLoanID string) error {
	query := q.Rebind(`UPDATE funded_loans SET is_active = ?, updated_at = ? WHERE funded_loan_id = ?`)
	result, err := q.ExecContext(ctx, query, false, nowMillis(), fundedLoanID)
	if err != nil {
		return util.Storage("deactivate funded loan", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return util.Storage("deactivate funded loan rows affected", err)
	}
	if rows == 0 {
		return util.NotFound("funded loan", fundedLoanID)
	}
	return nil
}

// DeactivateByLoanRequest marks every active funding of a loan request inactive.
func (r *FundedLoanRepository) DeactivateByLoanRequest(ctx context.Context, q repository.DBExecutor, loanRequestID string) (int64, error) {
	query := q.Rebind(`UPDATE funded_loans SET is_active = ?, updated_at = ?
              WHERE loan_request_id = ? AND is_active = ?`)
	result, err := q.ExecContext(ctx, query, false, nowMillis(), loanRequestID, true)
	if err != nil {
		return 0, util.Storage("deactivate loan request fundings", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, util.Storage("deactivate loan request fundings rows affected", err)
	}
	return rows, nil
}

// DeactivateAllExcept deactivates the active funded loans missing from keep. An empty keep
// set deactivates nothing.
func (r *FundedLoanRepository) DeactivateAllExcept(ctx context.Context, q repository.DBExecutor, keep []string) (int64, error) {
	if len(keep) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`UPDATE funded_loans SET is_active = ?, updated_at = ?
              WHERE is_active = ? AND funded_loan_id NOT IN (?)`, false, nowMillis(), true, keep)
	if err != nil {
		return 0, util.Storage("build deactivate stale query", err)
	}
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, util.Storage("deactivate stale funded loans", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, util.Storage("deactivate stale funded loans rows affected", err)
	}
	return rows, nil
}

// ListActiveFundedLoanIDs returns the ids of the active funded loans in id order.
func (r *FundedLoanRepository) ListActiveFundedLoanIDs(ctx context.Context, q repository.DBExecutor) ([]string, error) {
	ids := []string{}
	query := q.Rebind(`SELECT funded_loan_id FROM funded_loans WHERE is_active = ? ORDER BY funded_loan_id`)
	if err := q.SelectContext(ctx, &ids, query, true); err != nil {
		return nil, util.Storage("list active funded loans", err)
	}
	return ids, nil
}

// ListUserLoans returns the wallet's loans on both sides, newest funding first.
func (r *FundedLoanRepository) ListUserLoans(ctx context.Context, q repository.DBExecutor, walletID string, activeOnly bool) ([]domain.UserLoan, error) {
	activeFilter := ""
	args := []interface{}{walletID}
	if activeOnly {
		activeFilter = " AND fl.is_active = ?"
		args = append(args, true)
	}
	args = append(args, walletID)
	if activeOnly {
		args = append(args, true)
	}

	query := fmt.Sprintf(`
		SELECT fl.funded_loan_id, lr.loan_id, '%[2]s' AS role, w.payment_key_hash AS counterparty,
		       lr.loan_amount, lr.interest, lr.deadline, fl.funded_at, fl.tx_hash, fl.is_active, lr.status
		FROM funded_loans fl
		JOIN loan_requests lr ON lr.id = fl.loan_request_id
		JOIN wallets w ON w.id = fl.lender_id
		WHERE lr.borrower_id = ?%[1]s
		UNION ALL
		SELECT fl.funded_loan_id, lr.loan_id, '%[3]s' AS role, w.payment_key_hash AS counterparty,
		       lr.loan_amount, lr.interest, lr.deadline, fl.funded_at, fl.tx_hash, fl.is_active, lr.status
		FROM funded_loans fl
		JOIN loan_requests lr ON lr.id = fl.loan_request_id
		JOIN wallets w ON w.id = lr.borrower_id
		WHERE fl.lender_id = ?%[1]s
		ORDER BY funded_at DESC, funded_loan_id`, activeFilter, domain.RoleBorrower, domain.RoleLender)

	loans := []domain.UserLoan{}
	if err := q.SelectContext(ctx, &loans, q.Rebind(query), args...); err != nil {
		return nil, util.Storage("list user loans", err)
	}
	return loans, nil
}
