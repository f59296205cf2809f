// internal/service/validation.go
package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/util"
)

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return util.Invalid("%s is required", name)
	}
	return nil
}

// normalize trims *value in place and requires the result to be non-empty.
func normalize(name string, value *string) error {
	*value = strings.TrimSpace(*value)
	return requireField(name, *value)
}

// requireWhole checks that d is a non-negative integer.
func requireWhole(name string, d decimal.Decimal) error {
	if d.IsNegative() {
		return util.Invalid("%s must not be negative", name)
	}
	if !d.IsInteger() {
		return util.Invalid("%s must be an integer", name)
	}
	return nil
}

// requireTimestamp checks that d is a positive integer number of milliseconds.
func requireTimestamp(name string, d decimal.Decimal) error {
	if err := requireWhole(name, d); err != nil {
		return err
	}
	if d.IsZero() {
		return util.Invalid("%s is required", name)
	}
	return nil
}

func (in *FundingInput) validate() error {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"loanId", &in.LoanID},
		{"fundedLoanId", &in.FundedLoanID},
		{"lenderKey", &in.LenderKey},
		{"borrowerKey", &in.BorrowerKey},
		{"txHash", &in.TxHash},
	} {
		if err := normalize(f.name, f.value); err != nil {
			return err
		}
	}
	if err := requireWhole("loanAmount", in.LoanAmount); err != nil {
		return err
	}
	if err := requireWhole("interest", in.Interest); err != nil {
		return err
	}
	if err := requireTimestamp("deadline", in.Deadline); err != nil {
		return err
	}
	if err := requireWhole("fundedAt", in.FundedAt); err != nil {
		return err
	}
	if len(in.FundedWith) == 0 {
		return nil
	}
	utxos := make([]domain.FundingUtxo, len(in.FundedWith))
	for i, u := range in.FundedWith {
		u.TxHash = strings.TrimSpace(u.TxHash)
		if u.TxHash == "" {
			return util.Invalid("fundedWith[%d].txHash is required", i)
		}
		if u.OutputIndex < 0 {
			return util.Invalid("fundedWith[%d].outputIndex must not be negative", i)
		}
		utxos[i] = u
	}
	in.FundedWith = utxos
	return nil
}

func (in *RepaymentInput) validate() error {
	if err := normalize("fundedLoanId", &in.FundedLoanID); err != nil {
		return err
	}
	if err := normalize("repaymentTxHash", &in.RepaymentTxHash); err != nil {
		return err
	}
	return requireWhole("repaidAt", in.RepaidAt)
}

func (in *LoanRequestInput) validate() error {
	if err := normalize("loanId", &in.LoanID); err != nil {
		return err
	}
	if err := normalize("borrowerKey", &in.BorrowerKey); err != nil {
		return err
	}
	if err := requireWhole("loanAmount", in.LoanAmount); err != nil {
		return err
	}
	if err := requireWhole("interest", in.Interest); err != nil {
		return err
	}
	return requireTimestamp("deadline", in.Deadline)
}
