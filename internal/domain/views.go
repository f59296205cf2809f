// internal/domain/views.go
package domain

import "github.com/shopspring/decimal"

// LoanRole is the side a wallet takes on a loan.
type LoanRole string

const (
	RoleBorrower LoanRole = "borrower"
	RoleLender   LoanRole = "lender"
)

// UserLoan is a funded loan as seen by one participant. FundedWith is loaded separately.
type UserLoan struct {
	FundedLoanID string          `db:"funded_loan_id" json:"fundedLoanId"`
	LoanID       string          `db:"loan_id" json:"loanId"`
	Role         LoanRole        `db:"role" json:"role"`
	Counterparty string          `db:"counterparty" json:"counterparty"`
	LoanAmount   decimal.Decimal `db:"loan_amount" json:"loanAmount"`
	Interest     decimal.Decimal `db:"interest" json:"interest"`
	Deadline     decimal.Decimal `db:"deadline" json:"deadline"`
	FundedAt     decimal.Decimal `db:"funded_at" json:"fundedAt"`
	TxHash       string          `db:"tx_hash" json:"txHash"`
	IsActive     bool            `db:"is_active" json:"isActive"`
	Status       LoanStatus      `db:"status" json:"status"`
	FundedWith   []FundingUtxo   `db:"-" json:"fundedWith"`
}

// UserSummary aggregates a wallet's activity on both sides of the book.
type UserSummary struct {
	UserKey        string          `json:"userKey"`
	WalletAddress  string          `json:"walletAddress"`
	BorrowedCount  int             `json:"borrowedCount"`
	LentCount      int             `json:"lentCount"`
	ActiveBorrowed int             `json:"activeBorrowed"`
	ActiveLent     int             `json:"activeLent"`
	RepaidCount    int             `json:"repaidCount"`
	DefaultedCount int             `json:"defaultedCount"`
	TotalBorrowed  decimal.Decimal `json:"totalBorrowed"`
	TotalLent      decimal.Decimal `json:"totalLent"`
	CurrentScore   int             `json:"currentScore"`
}

// Summarize folds a wallet's loans into a UserSummary.
func Summarize(wallet *Wallet, loans []UserLoan, score *CreditScore) *UserSummary {
	out := &UserSummary{
		UserKey:       wallet.PaymentKeyHash,
		WalletAddress: wallet.WalletAddress,
		TotalBorrowed: decimal.Zero,
		TotalLent:     decimal.Zero,
		CurrentScore:  DefaultScore,
	}
	if score != nil {
		out.CurrentScore = score.CurrentScore
	}
	for _, l := range loans {
		switch l.Role {
		case RoleBorrower:
			out.BorrowedCount++
			out.TotalBorrowed = out.TotalBorrowed.Add(l.LoanAmount)
			if l.IsActive {
				out.ActiveBorrowed++
			}
			switch l.Status {
			case LoanStatusRepaid:
				out.RepaidCount++
			case LoanStatusDefaulted:
				out.DefaultedCount++
			}
		case RoleLender:
			out.LentCount++
			out.TotalLent = out.TotalLent.Add(l.LoanAmount)
			if l.IsActive {
				out.ActiveLent++
			}
		}
	}
	return out
}
