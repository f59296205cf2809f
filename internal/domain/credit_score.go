// internal/domain/credit_score.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Score bounds. New borrowers start at DefaultScore; user-facing copy that quotes 600 is stale.
const (
	MinScore     = 300
	MaxScore     = 850
	DefaultScore = 500
)

// CreditScore is the per-borrower score and the counters it is derived from.
type CreditScore struct {
	ID             string `db:"id" json:"-"`
	WalletID       string `db:"wallet_id" json:"-"`
	CurrentScore   int    `db:"current_score" json:"currentScore"`
	TotalLoans     int    `db:"total_loans" json:"totalLoans"`
	OnTimePayments int    `db:"on_time_payments" json:"onTimePayments"`
	EarlyPayments  int    `db:"early_payments" json:"earlyPayments"`
	LatePayments   int    `db:"late_payments" json:"latePayments"`
	CreatedAt      int64  `db:"created_at" json:"-"`
	UpdatedAt      int64  `db:"updated_at" json:"updatedAt"`
}

// NewCreditScore creates the default score record for a wallet.
func NewCreditScore(walletID string) *CreditScore {
	now := time.Now().UTC().UnixMilli()
	return &CreditScore{
		ID:           uuid.NewString(),
		WalletID:     walletID,
		CurrentScore: DefaultScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
