// internal/repository/credit_score_repo.go
package repository

import (
	"context"

	"chainlend-ledger/internal/domain"
)

// CreditScoreRepository defines the interface for credit score data operations.
type CreditScoreRepository interface {
	// EnsureCreditScore inserts the default record unless the wallet already has one.
	EnsureCreditScore(ctx context.Context, q DBExecutor, score *domain.CreditScore) error
	// GetCreditScoreByWalletID retrieves a wallet's score.
	GetCreditScoreByWalletID(ctx context.Context, q DBExecutor, walletID string) (*domain.CreditScore, error)
	// IncrementCounters adds one to total_loans and to the counter of category in a single
	// statement, which locks the row for the rest of the transaction.
	IncrementCounters(ctx context.Context, q DBExecutor, walletID string, category domain.PaymentCategory) error
	// UpdateScore writes the recomputed score.
	UpdateScore(ctx context.Context, q DBExecutor, walletID string, score int) error
}
