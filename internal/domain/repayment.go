// internal/domain/repayment.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentCategory classifies a repayment relative to its deadline.
type PaymentCategory string

const (
	PaymentEarly  PaymentCategory = "early"
	PaymentOnTime PaymentCategory = "on_time"
	PaymentLate   PaymentCategory = "late"
)

// Valid reports whether c is one of the known categories.
func (c PaymentCategory) Valid() bool {
	switch c {
	case PaymentEarly, PaymentOnTime, PaymentLate:
		return true
	}
	return false
}

// Classification is the outcome of classifying one repayment.
type Classification struct {
	Category         PaymentCategory `json:"paymentCategory"`
	MagnitudeDays    float64         `json:"daysEarlyLate"`
	LoanDurationDays float64         `json:"loanDuration"`
}

// PaymentDetail is one scored entry of a borrower's repayment history.
type PaymentDetail struct {
	FundedLoanID     string          `json:"fundedLoanId"`
	Category         PaymentCategory `json:"paymentCategory"`
	MagnitudeDays    float64         `json:"daysEarlyLate"`
	LoanDurationDays float64         `json:"loanDuration"`
	RepaidAt         decimal.Decimal `json:"repaidAt"`
}

// RepaidLoan records the single repayment of a FundedLoan. Immutable once written.
type RepaidLoan struct {
	ID              string          `db:"id" json:"id"`
	FundedLoanID    string          `db:"funded_loan_id" json:"fundedLoanId"`
	RepaidAt        decimal.Decimal `db:"repaid_at" json:"repaidAt"`
	RepaymentTxHash string          `db:"repayment_tx_hash" json:"repaymentTxHash"`
	DaysEarlyLate   float64         `db:"days_early_late" json:"daysEarlyLate"`
	PaymentCategory PaymentCategory `db:"payment_category" json:"paymentCategory"`
	CreatedAt       int64           `db:"created_at" json:"createdAt"`
}

// NewRepaidLoan creates a RepaidLoan from a classified repayment.
func NewRepaidLoan(fundedLoanID string, repaidAt decimal.Decimal, txHash string, c Classification) *RepaidLoan {
	return &RepaidLoan{
		ID:              uuid.NewString(),
		FundedLoanID:    fundedLoanID,
		RepaidAt:        repaidAt,
		RepaymentTxHash: txHash,
		DaysEarlyLate:   c.MagnitudeDays,
		PaymentCategory: c.Category,
		CreatedAt:       time.Now().UTC().UnixMilli(),
	}
}

// RepaymentRecord is a repayment joined with the loan it settled, as stored. Duration is
// derived from Deadline and FundedAt.
type RepaymentRecord struct {
	FundedLoanID    string          `db:"funded_loan_id" json:"fundedLoanId"`
	LoanID          string          `db:"loan_id" json:"loanId"`
	LoanAmount      decimal.Decimal `db:"loan_amount" json:"loanAmount"`
	Interest        decimal.Decimal `db:"interest" json:"interest"`
	Deadline        decimal.Decimal `db:"deadline" json:"deadline"`
	FundedAt        decimal.Decimal `db:"funded_at" json:"fundedAt"`
	RepaidAt        decimal.Decimal `db:"repaid_at" json:"repaidAt"`
	RepaymentTxHash string          `db:"repayment_tx_hash" json:"repaymentTxHash"`
	DaysEarlyLate   float64         `db:"days_early_late" json:"daysEarlyLate"`
	PaymentCategory PaymentCategory `db:"payment_category" json:"paymentCategory"`
}
