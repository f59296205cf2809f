// internal/service/reconciliation_integration_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/ledger"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/repository/sqlstore"
	"chainlend-ledger/internal/scoring"
	"chainlend-ledger/internal/util"
	"chainlend-ledger/pkg/db"
)

// failingScores breaks UpdateScore after the rest of the repayment has been written.
type failingScores struct {
	repository.CreditScoreRepository
}

func (f failingScores) UpdateScore(ctx context.Context, q repository.DBExecutor, walletID string, score int) error {
	return util.Storage("update credit score", errors.New("injected failure"))
}

func newSQLiteService(t *testing.T, scores repository.CreditScoreRepository) (ReconciliationService, *sqlx.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Driver: db.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))

	if scores == nil {
		scores = sqlstore.NewCreditScoreRepository()
	}
	store := ledger.NewStore(
		sqlstore.NewWalletRepository(),
		sqlstore.NewLoanRequestRepository(),
		sqlstore.NewFundedLoanRepository(),
		sqlstore.NewRepaidLoanRepository(),
		scores,
		scoring.Classifier{},
	)
	svc := NewReconciliationService(conn, conn, store, scoring.Classifier{}, db.BeginTx, db.CommitTx, db.RollbackTx)
	return svc, conn
}

func fundingFor(loanID, fundedLoanID string) FundingInput {
	return FundingInput{
		LoanID:       loanID,
		FundedLoanID: fundedLoanID,
		LenderKey:    "pkh-lender",
		BorrowerKey:  "pkh-borrower",
		LoanAmount:   decimal.NewFromInt(1000),
		Interest:     decimal.NewFromInt(100),
		Deadline:     deadline,
		TxHash:       "tx-" + fundedLoanID,
		FundedWith:   []domain.FundingUtxo{{TxHash: "utxo-" + fundedLoanID, OutputIndex: 0}},
		FundedAt:     deadline.Sub(decimal.NewFromInt(30 * day)),
	}
}

func repaymentAt(fundedLoanID string, offsetDays int64) RepaymentInput {
	return RepaymentInput{
		FundedLoanID:    fundedLoanID,
		RepaidAt:        deadline.Add(decimal.NewFromInt(offsetDays * day)),
		RepaymentTxHash: "rtx-" + fundedLoanID,
	}
}

func TestScoreScenarios(t *testing.T) {
	svc, _ := newSQLiteService(t, nil)
	ctx := context.Background()

	_, err := svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)
	res, err := svc.RecordRepayment(ctx, repaymentAt("fl-1", -10))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentEarly, res.PaymentCategory)
	assert.InDelta(t, 10.0, res.DaysEarlyLate, 1e-9)
	assert.InDelta(t, 30.0, res.LoanDuration, 1e-9)
	assert.Equal(t, 600, res.NewScore)
	assert.Equal(t, "pkh-borrower", res.BorrowerKey)

	_, err = svc.RecordFunding(ctx, fundingFor("loan-2", "fl-2"))
	require.NoError(t, err)
	res, err = svc.RecordRepayment(ctx, repaymentAt("fl-2", 0))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentOnTime, res.PaymentCategory)
	assert.Equal(t, 610, res.NewScore)

	score, err := svc.GetCreditScore(ctx, "pkh-borrower")
	require.NoError(t, err)
	assert.Equal(t, 610, score.CurrentScore)
	assert.Equal(t, 2, score.TotalLoans)
	assert.Equal(t, 1, score.EarlyPayments)
	assert.Equal(t, 1, score.OnTimePayments)
}

func TestCountersAfterMixedRepayments(t *testing.T) {
	svc, _ := newSQLiteService(t, nil)
	ctx := context.Background()

	offsets := []int64{-5, 0, 3, -2} // early, on_time, late, early
	for i, off := range offsets {
		id := fmt.Sprintf("fl-%d", i)
		_, err := svc.RecordFunding(ctx, fundingFor(fmt.Sprintf("loan-%d", i), id))
		require.NoError(t, err)
		_, err = svc.RecordRepayment(ctx, repaymentAt(id, off))
		require.NoError(t, err)
	}

	score, err := svc.GetCreditScore(ctx, "pkh-borrower")
	require.NoError(t, err)
	assert.Equal(t, 4, score.TotalLoans)
	assert.Equal(t, 2, score.EarlyPayments)
	assert.Equal(t, 1, score.OnTimePayments)
	assert.Equal(t, 1, score.LatePayments)
	assert.Equal(t, score.TotalLoans, score.EarlyPayments+score.OnTimePayments+score.LatePayments)
	assert.GreaterOrEqual(t, score.CurrentScore, domain.MinScore)
	assert.LessOrEqual(t, score.CurrentScore, domain.MaxScore)
}

func TestFundingIsIdempotent(t *testing.T) {
	svc, conn := newSQLiteService(t, nil)
	ctx := context.Background()

	first, err := svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.True(t, second.AlreadyRecorded)

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM funded_loans`))
	assert.Equal(t, 1, count)
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM funding_utxos`))
	assert.Equal(t, 1, count)
}

func TestFundingForAnotherBorrowerConflicts(t *testing.T) {
	svc, conn := newSQLiteService(t, nil)
	ctx := context.Background()

	_, err := svc.RecordFunding(ctx, fundingFor("loan-m", "fl-m1"))
	require.NoError(t, err)

	other := fundingFor("loan-m", "fl-m2")
	other.BorrowerKey = "pkh-other"
	res, err := svc.RecordFunding(ctx, other)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, util.ErrAlreadyExists)
	assert.ErrorIs(t, err, util.ErrConflict)

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM funded_loans WHERE funded_loan_id = 'fl-m2'`))
	assert.Zero(t, count)
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM wallets WHERE payment_key_hash = 'pkh-other'`))
	assert.Zero(t, count, "the rejected funding leaves no wallet behind")

	changed := fundingFor("loan-m", "fl-m3")
	changed.LoanAmount = decimal.NewFromInt(999)
	_, err = svc.RecordFunding(ctx, changed)
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	active, err := svc.ActiveFundedLoanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fl-m1"}, active)
}

func TestFundingIDsAreTrimmed(t *testing.T) {
	svc, conn := newSQLiteService(t, nil)
	ctx := context.Background()

	padded := fundingFor(" loan-1 ", " fl-1")
	padded.LenderKey = "pkh-lender\t"
	padded.BorrowerKey = " pkh-borrower"
	first, err := svc.RecordFunding(ctx, padded)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)
	assert.True(t, second.AlreadyRecorded)

	var ids []string
	require.NoError(t, conn.Select(&ids, `SELECT funded_loan_id FROM funded_loans`))
	assert.Equal(t, []string{"fl-1"}, ids)
	var wallets int
	require.NoError(t, conn.Get(&wallets, `SELECT COUNT(*) FROM wallets`))
	assert.Equal(t, 2, wallets)

	_, err = svc.RecordRepayment(ctx, RepaymentInput{
		FundedLoanID: "fl-1 ", RepaidAt: deadline, RepaymentTxHash: " rtx-1",
	})
	require.NoError(t, err)
	var txHash string
	require.NoError(t, conn.Get(&txHash, `SELECT repayment_tx_hash FROM repaid_loans`))
	assert.Equal(t, "rtx-1", txHash)
}

func TestSecondRepaymentConflicts(t *testing.T) {
	svc, _ := newSQLiteService(t, nil)
	ctx := context.Background()
	_, err := svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)

	_, err = svc.RecordRepayment(ctx, repaymentAt("fl-1", 0))
	require.NoError(t, err)
	_, err = svc.RecordRepayment(ctx, repaymentAt("fl-1", 0))
	assert.ErrorIs(t, err, util.ErrConflict)
	assert.False(t, util.Retryable(err))

	score, err := svc.GetCreditScore(ctx, "pkh-borrower")
	require.NoError(t, err)
	assert.Equal(t, 1, score.TotalLoans)
}

func TestConcurrentRepaymentsOfOneLoan(t *testing.T) {
	svc, _ := newSQLiteService(t, nil)
	ctx := context.Background()
	_, err := svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)

	const workers = 2
	var wg sync.WaitGroup
	errs := make([]error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.RecordRepayment(ctx, repaymentAt("fl-1", -10))
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, util.ErrAlreadyRepaid):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	score, err := svc.GetCreditScore(ctx, "pkh-borrower")
	require.NoError(t, err)
	assert.Equal(t, 1, score.TotalLoans)
	assert.Equal(t, 600, score.CurrentScore)
}

func TestVerifyAgainstChainScenario(t *testing.T) {
	svc, _ := newSQLiteService(t, nil)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := svc.RecordFunding(ctx, fundingFor(fmt.Sprintf("loan-%d", i), fmt.Sprintf("fl-%d", i)))
		require.NoError(t, err)
	}

	res, err := svc.VerifyAgainstChain(ctx, VerificationInput{ActiveFundedLoanIDs: []string{"fl-2"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deactivated)

	active, err := svc.ActiveFundedLoanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fl-2"}, active)

	res, err = svc.VerifyAgainstChain(ctx, VerificationInput{})
	require.NoError(t, err)
	assert.Zero(t, res.Deactivated)
	active, err = svc.ActiveFundedLoanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fl-2"}, active, "an empty set purges nothing")
}

func TestFailedScoreUpdateLeavesNoTrace(t *testing.T) {
	svc, conn := newSQLiteService(t, failingScores{sqlstore.NewCreditScoreRepository()})
	ctx := context.Background()
	_, err := svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)

	_, err = svc.RecordRepayment(ctx, repaymentAt("fl-1", 0))
	require.ErrorIs(t, err, util.ErrStorage)

	var repaid int
	require.NoError(t, conn.Get(&repaid, `SELECT COUNT(*) FROM repaid_loans`))
	assert.Zero(t, repaid)

	var active bool
	require.NoError(t, conn.Get(&active, `SELECT is_active FROM funded_loans WHERE funded_loan_id = 'fl-1'`))
	assert.True(t, active)

	var status string
	require.NoError(t, conn.Get(&status, `SELECT status FROM loan_requests WHERE loan_id = 'loan-1'`))
	assert.Equal(t, string(domain.LoanStatusFunded), status)

	var scores int
	require.NoError(t, conn.Get(&scores, `SELECT COUNT(*) FROM credit_scores`))
	assert.Zero(t, scores)
}

func TestRequestLoanThenFundThenDefault(t *testing.T) {
	svc, _ := newSQLiteService(t, nil)
	ctx := context.Background()

	req, err := svc.RequestLoan(ctx, LoanRequestInput{
		LoanID: "loan-1", BorrowerKey: "pkh-borrower", BorrowerAddress: "addr_borrower",
		LoanAmount: decimal.NewFromInt(1000), Interest: decimal.NewFromInt(100), Deadline: deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPending, req.Status)

	_, err = svc.RequestLoan(ctx, LoanRequestInput{
		LoanID: "loan-1", BorrowerKey: "pkh-borrower",
		LoanAmount: decimal.NewFromInt(1), Interest: decimal.Zero, Deadline: deadline,
	})
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	_, err = svc.RecordFunding(ctx, fundingFor("loan-1", "fl-1"))
	require.NoError(t, err)

	loans, err := svc.GetUserLoans(ctx, "pkh-borrower", 10, 0)
	require.NoError(t, err)
	require.Len(t, loans.Active, 1)
	assert.Equal(t, domain.LoanStatusFunded, loans.Active[0].Status)

	defaulted, err := svc.MarkDefaulted(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDefaulted, defaulted.Status)

	_, err = svc.RecordRepayment(ctx, repaymentAt("fl-1", 5))
	assert.ErrorIs(t, err, util.ErrLoanDefaulted)

	summary, err := svc.GetUserSummary(ctx, "pkh-borrower")
	require.NoError(t, err)
	assert.Equal(t, "addr_borrower", summary.WalletAddress)
	assert.Equal(t, 1, summary.BorrowedCount)
	assert.Equal(t, 1, summary.DefaultedCount)
	assert.Zero(t, summary.ActiveBorrowed)
	assert.True(t, decimal.NewFromInt(1000).Equal(summary.TotalBorrowed))
}

func TestGetCreditScoreCreatesDefault(t *testing.T) {
	svc, _ := newSQLiteService(t, nil)

	score, err := svc.GetCreditScore(context.Background(), "pkh-new")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultScore, score.CurrentScore)
	assert.Zero(t, score.TotalLoans)

	_, err = svc.GetUserSummary(context.Background(), "pkh-unknown")
	assert.ErrorIs(t, err, util.ErrNotFound)
}
