// internal/service/types.go
package service

import (
	"github.com/shopspring/decimal"

	"chainlend-ledger/internal/domain"
)

// FundingInput is an observed funding event. Timestamps are epoch milliseconds and may
// arrive as JSON numbers or numeric strings.
type FundingInput struct {
	LoanID          string               `json:"loanId"`
	FundedLoanID    string               `json:"fundedLoanId"`
	LenderKey       string               `json:"lenderKey"`
	LenderAddress   string               `json:"lenderAddress,omitempty"`
	BorrowerKey     string               `json:"borrowerKey"`
	BorrowerAddress string               `json:"borrowerAddress,omitempty"`
	LoanAmount      decimal.Decimal      `json:"loanAmount"`
	Interest        decimal.Decimal      `json:"interest"`
	Deadline        decimal.Decimal      `json:"deadline"`
	TxHash          string               `json:"txHash"`
	FundedWith      []domain.FundingUtxo `json:"fundedWith"`
	FundedAt        decimal.Decimal      `json:"fundedAt"`
}

// FundingResult reports whether the funding was new or a replay.
type FundingResult struct {
	FundedLoanID    string `json:"fundedLoanId"`
	LoanID          string `json:"loanId"`
	Created         bool   `json:"created"`
	AlreadyRecorded bool   `json:"alreadyRecorded"`
}

// RepaymentInput is an observed repayment event. A zero RepaidAt means "now".
type RepaymentInput struct {
	FundedLoanID    string          `json:"fundedLoanId"`
	RepaidAt        decimal.Decimal `json:"repaidAt"`
	RepaymentTxHash string          `json:"repaymentTxHash"`
}

// RepaymentResult is the outcome of a reconciled repayment.
type RepaymentResult struct {
	FundedLoanID    string                 `json:"fundedLoanId"`
	BorrowerKey     string                 `json:"userKey"`
	NewScore        int                    `json:"newScore"`
	PaymentCategory domain.PaymentCategory `json:"paymentCategory"`
	DaysEarlyLate   float64                `json:"daysEarlyLate"`
	LoanDuration    float64                `json:"loanDuration"`
	RepaidAt        decimal.Decimal        `json:"repaidAt"`
}

// VerificationInput is the set of funded loans the chain reports as outstanding.
type VerificationInput struct {
	ActiveFundedLoanIDs []string `json:"activeFundedLoanIds"`
}

// VerificationResult reports how many ledger rows were deactivated.
type VerificationResult struct {
	Checked     int   `json:"checked"`
	Deactivated int64 `json:"deactivated"`
}

// LoanRequestInput is a borrower's request for a loan.
type LoanRequestInput struct {
	LoanID          string          `json:"loanId"`
	BorrowerKey     string          `json:"borrowerKey"`
	BorrowerAddress string          `json:"borrowerAddress,omitempty"`
	LoanAmount      decimal.Decimal `json:"loanAmount"`
	Interest        decimal.Decimal `json:"interest"`
	Deadline        decimal.Decimal `json:"deadline"`
}

// UserLoans lists a wallet's outstanding loans and one page of its repayments.
type UserLoans struct {
	UserKey    string                   `json:"userKey"`
	Active     []domain.UserLoan        `json:"active"`
	Repayments []domain.RepaymentRecord `json:"repayments"`
	TotalCount int64                    `json:"totalCount"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
}
