// internal/domain/loan.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a LoanRequest.
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusFunded    LoanStatus = "funded"
	LoanStatusRepaid    LoanStatus = "repaid"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// Terminal reports whether no further transition is allowed.
func (s LoanStatus) Terminal() bool {
	return s == LoanStatusRepaid || s == LoanStatusDefaulted
}

// CanTransitionTo enforces forward-only movement: pending→funded→repaid, or any
// non-terminal state → defaulted.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	switch next {
	case LoanStatusFunded:
		return s == LoanStatusPending
	case LoanStatusRepaid:
		return s == LoanStatusFunded
	case LoanStatusDefaulted:
		return !s.Terminal()
	default:
		return false
	}
}

// LoanRequest holds the terms of a loan. Amounts are integers in the asset's smallest unit;
// Deadline is epoch milliseconds kept as a numeric string in storage.
type LoanRequest struct {
	ID         string          `db:"id" json:"id"`
	LoanID     string          `db:"loan_id" json:"loanId"`
	BorrowerID string          `db:"borrower_id" json:"borrowerId"`
	LoanAmount decimal.Decimal `db:"loan_amount" json:"loanAmount"`
	Interest   decimal.Decimal `db:"interest" json:"interest"`
	Deadline   decimal.Decimal `db:"deadline" json:"deadline"`
	Status     LoanStatus      `db:"status" json:"status"`
	CreatedAt  int64           `db:"created_at" json:"createdAt"`
	UpdatedAt  int64           `db:"updated_at" json:"updatedAt"`
}

// NewLoanRequest creates a new LoanRequest in the given status.
func NewLoanRequest(loanID, borrowerID string, amount, interest, deadline decimal.Decimal, status LoanStatus) *LoanRequest {
	now := time.Now().UTC().UnixMilli()
	return &LoanRequest{
		ID:         uuid.NewString(),
		LoanID:     loanID,
		BorrowerID: borrowerID,
		LoanAmount: amount,
		Interest:   interest,
		Deadline:   deadline,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// FundedLoan is one on-chain funding commitment against a LoanRequest.
type FundedLoan struct {
	ID            string          `db:"id" json:"id"`
	FundedLoanID  string          `db:"funded_loan_id" json:"fundedLoanId"`
	LoanRequestID string          `db:"loan_request_id" json:"loanRequestId"`
	LenderID      string          `db:"lender_id" json:"lenderId"`
	FundedAt      decimal.Decimal `db:"funded_at" json:"fundedAt"`
	TxHash        string          `db:"tx_hash" json:"txHash"`
	IsActive      bool            `db:"is_active" json:"isActive"`
	CreatedAt     int64           `db:"created_at" json:"createdAt"`
	UpdatedAt     int64           `db:"updated_at" json:"updatedAt"`
}

// NewFundedLoan creates an active FundedLoan.
func NewFundedLoan(fundedLoanID, loanRequestID, lenderID string, fundedAt decimal.Decimal, txHash string) *FundedLoan {
	now := time.Now().UTC().UnixMilli()
	return &FundedLoan{
		ID:            uuid.NewString(),
		FundedLoanID:  fundedLoanID,
		LoanRequestID: loanRequestID,
		LenderID:      lenderID,
		FundedAt:      fundedAt,
		TxHash:        txHash,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// FundingUtxo is a source-of-funds output for a FundedLoan, kept for provenance.
type FundingUtxo struct {
	FundedLoanID string `db:"funded_loan_id" json:"-"`
	TxHash       string `db:"tx_hash" json:"txHash"`
	OutputIndex  int    `db:"output_index" json:"outputIndex"`
}

// FundedLoanDetail is a FundedLoan joined with the terms of its LoanRequest.
type FundedLoanDetail struct {
	FundedLoan
	LoanID      string          `db:"loan_id" json:"loanId"`
	BorrowerID  string          `db:"borrower_id" json:"borrowerId"`
	Deadline    decimal.Decimal `db:"deadline" json:"deadline"`
	LoanStatus  LoanStatus      `db:"loan_status" json:"loanStatus"`
	LoanAmount  decimal.Decimal `db:"loan_amount" json:"loanAmount"`
	Interest    decimal.Decimal `db:"interest" json:"interest"`
}
