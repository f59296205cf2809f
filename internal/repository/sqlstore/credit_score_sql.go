// internal/repository/sqlstore/credit_score_sql.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/util"
)

const creditScoreColumns = `id, wallet_id, current_score, total_loans, on_time_payments,
       early_payments, late_payments, created_at, updated_at`

var counterColumns = map[domain.PaymentCategory]string{
	domain.PaymentEarly:  "early_payments",
	domain.PaymentOnTime: "on_time_payments",
	domain.PaymentLate:   "late_payments",
}

// CreditScoreRepository implements repository.CreditScoreRepository with sqlx.
type CreditScoreRepository struct{}

// NewCreditScoreRepository creates a new CreditScoreRepository.
func NewCreditScoreRepository() repository.CreditScoreRepository {
	return &CreditScoreRepository{}
}

// EnsureCreditScore inserts the record if the wallet has none.
func (r *CreditScoreRepository) EnsureCreditScore(ctx context.Context, q repository.DBExecutor, score *domain.CreditScore) error {
	query := q.Rebind(`INSERT INTO credit_scores (` + creditScoreColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (wallet_id) DO NOTHING`)
	_, err := q.ExecContext(ctx, query,
		score.ID, score.WalletID, score.CurrentScore, score.TotalLoans, score.OnTimePayments,
		score.EarlyPayments, score.LatePayments, score.CreatedAt, score.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return util.NotFound("wallet", score.WalletID)
		}
		return util.Storage("ensure credit score", err)
	}
	return nil
}

// GetCreditScoreByWalletID retrieves a wallet's credit score.
func (r *CreditScoreRepository) GetCreditScoreByWalletID(ctx context.Context, q repository.DBExecutor, walletID string) (*domain.CreditScore, error) {
	var score domain.CreditScore
	query := q.Rebind(`SELECT ` + creditScoreColumns + ` FROM credit_scores WHERE wallet_id = ?`)
	if err := q.GetContext(ctx, &score, query, walletID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("credit score", walletID)
		}
		return nil, util.Storage("get credit score", err)
	}
	return &score, nil
}

// IncrementCounters bumps total_loans and the category counter in place.
func (r *CreditScoreRepository) IncrementCounters(ctx context.Context, q repository.DBExecutor, walletID string, category domain.PaymentCategory) error {
	column, ok := counterColumns[category]
	if !ok {
		return util.Invalid("unknown payment category %q", category)
	}
	query := q.Rebind(fmt.Sprintf(`UPDATE credit_scores
              SET total_loans = total_loans + 1, %[1]s = %[1]s + 1, updated_at = ?
              WHERE wallet_id = ?`, column))
	result, err := q.ExecContext(ctx, query, nowMillis(), walletID)
	if err != nil {
		return util.Storage("increment credit score counters", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return util.Storage("increment credit score counters rows affected", err)
	}
	if rows == 0 {
		return util.NotFound("credit score", walletID)
	}
	return nil
}

// UpdateScore stores a recomputed score.
func (r *CreditScoreRepository) UpdateScore(ctx context.Context, q repository.DBExecutor, walletID string, score int) error {
	query := q.Rebind(`UPDATE credit_scores SET current_score = ?, updated_at = ? WHERE wallet_id = ?`)
	result, err := q.ExecContext(ctx, query, score, nowMillis(), walletID)
	if err != nil {
		return util.Storage("update credit score", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return util.Storage("update credit score rows affected", err)
	}
	if rows == 0 {
		return util.NotFound("credit score", walletID)
	}
	return nil
}
