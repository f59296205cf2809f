// internal/service/reconciliation_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/ledger"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/scoring"
	"chainlend-ledger/internal/util"
	"chainlend-ledger/pkg/db"
)

// LedgerStore is the subset of *ledger.Store the service drives.
type LedgerStore interface {
	GetOrCreateWallet(ctx context.Context, q repository.DBExecutor, paymentKeyHash, walletAddress string) (*domain.Wallet, error)
	GetWallet(ctx context.Context, q repository.DBExecutor, paymentKeyHash string) (*domain.Wallet, error)
	GetWalletByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Wallet, error)
	GetOrCreateLoanRequest(ctx context.Context, q repository.DBExecutor, terms ledger.LoanTerms) (*domain.LoanRequest, error)
	CreateLoanRequest(ctx context.Context, q repository.DBExecutor, terms ledger.LoanTerms) (*domain.LoanRequest, error)
	RecordFundedLoan(ctx context.Context, q repository.DBExecutor, f ledger.Funding) (bool, error)
	GetFundedLoan(ctx context.Context, q repository.DBExecutor, fundedLoanID string) (*domain.FundedLoanDetail, error)
	RecordRepayment(ctx context.Context, q repository.DBExecutor, r ledger.Repayment) (*domain.RepaidLoan, error)
	ApplyScoreUpdate(ctx context.Context, q repository.DBExecutor, borrowerID string, payment domain.PaymentDetail) (*domain.CreditScore, error)
	GetOrCreateCreditScore(ctx context.Context, q repository.DBExecutor, walletID string) (*domain.CreditScore, error)
	FindCreditScore(ctx context.Context, q repository.DBExecutor, walletID string) (*domain.CreditScore, error)
	DeactivateStaleFundedLoans(ctx context.Context, q repository.DBExecutor, activeIDs []string) (int64, error)
	ListActiveFundedLoanIDs(ctx context.Context, q repository.DBExecutor) ([]string, error)
	MarkDefaulted(ctx context.Context, q repository.DBExecutor, loanID string) (*domain.LoanRequest, error)
	ListUserLoans(ctx context.Context, q repository.DBExecutor, walletID string, activeOnly bool) ([]domain.UserLoan, error)
	ListRepayments(ctx context.Context, q repository.DBExecutor, borrowerID string, limit, offset int) ([]domain.RepaymentRecord, int64, error)
}

// ReconciliationService defines the ledger reconciliation and scoring operations.
type ReconciliationService interface {
	RecordFunding(ctx context.Context, in FundingInput) (*FundingResult, error)
	RecordRepayment(ctx context.Context, in RepaymentInput) (*RepaymentResult, error)
	GetCreditScore(ctx context.Context, userKey string) (*domain.CreditScore, error)
	VerifyAgainstChain(ctx context.Context, in VerificationInput) (*VerificationResult, error)
	ActiveFundedLoanIDs(ctx context.Context) ([]string, error)
	RequestLoan(ctx context.Context, in LoanRequestInput) (*domain.LoanRequest, error)
	MarkDefaulted(ctx context.Context, loanID string) (*domain.LoanRequest, error)
	GetUserLoans(ctx context.Context, userKey string, limit, offset int) (*UserLoans, error)
	GetUserSummary(ctx context.Context, userKey string) (*domain.UserSummary, error)
}

// reconciliationService implements the ReconciliationService interface.
type reconciliationService struct {
	dbBeginner db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	store      LedgerStore
	classifier scoring.Classifier
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
	now        func() time.Time
}

// NewReconciliationService creates a new instance of ReconciliationService.
func NewReconciliationService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	store LedgerStore,
	classifier scoring.Classifier,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) ReconciliationService {
	return &reconciliationService{
		dbBeginner: dbBeginner,
		dbExecutor: dbExecutor,
		store:      store,
		classifier: classifier,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
		now:        time.Now,
	}
}

// inTx runs fn inside one transaction and commits only if fn succeeds.
func (s *reconciliationService) inTx(ctx context.Context, op string, fn func(q repository.DBExecutor) error) error {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return util.Storage(op+": failed to begin transaction", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("%s: transaction controller does not implement DBExecutor", op)
	}

	if err := fn(txExecutor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.commitTx(txController); err != nil {
		return util.Storage(op+": failed to commit transaction", err)
	}
	return nil
}

// RecordFunding registers both wallets, the loan request and the funded loan as one unit.
// Replays of a known funded loan succeed without changing anything.
func (s *reconciliationService) RecordFunding(ctx context.Context, in FundingInput) (*FundingResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	result := &FundingResult{FundedLoanID: in.FundedLoanID, LoanID: in.LoanID}
	err := s.inTx(ctx, "record funding", func(q repository.DBExecutor) error {
		borrower, err := s.store.GetOrCreateWallet(ctx, q, in.BorrowerKey, in.BorrowerAddress)
		if err != nil {
			return err
		}
		lender, err := s.store.GetOrCreateWallet(ctx, q, in.LenderKey, in.LenderAddress)
		if err != nil {
			return err
		}
		req, err := s.store.GetOrCreateLoanRequest(ctx, q, ledger.LoanTerms{
			LoanID:     in.LoanID,
			BorrowerID: borrower.ID,
			LoanAmount: in.LoanAmount,
			Interest:   in.Interest,
			Deadline:   in.Deadline,
		})
		if err != nil {
			return err
		}
		created, err := s.store.RecordFundedLoan(ctx, q, ledger.Funding{
			LoanRequestID: req.ID,
			FundedLoanID:  in.FundedLoanID,
			LenderID:      lender.ID,
			FundedAt:      in.FundedAt,
			TxHash:        in.TxHash,
			Utxos:         in.FundedWith,
		})
		if err != nil {
			return err
		}
		result.Created = created
		result.AlreadyRecorded = !created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordRepayment classifies the repayment, stores it and updates the borrower's score.
// Either all of it commits or none of it does.
func (s *reconciliationService) RecordRepayment(ctx context.Context, in RepaymentInput) (*RepaymentResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repaidAt := in.RepaidAt
	if repaidAt.IsZero() {
		repaidAt = decimal.NewFromInt(s.now().UTC().UnixMilli())
	}

	var result *RepaymentResult
	err := s.inTx(ctx, "record repayment", func(q repository.DBExecutor) error {
		loan, err := s.store.GetFundedLoan(ctx, q, in.FundedLoanID)
		if err != nil {
			return err
		}
		classification := s.classifier.Classify(loan.Deadline, repaidAt, scoring.KnownTime(loan.FundedAt))

		if _, err := s.store.RecordRepayment(ctx, q, ledger.Repayment{
			FundedLoanID:   in.FundedLoanID,
			RepaidAt:       repaidAt,
			TxHash:         in.RepaymentTxHash,
			Classification: classification,
		}); err != nil {
			return err
		}

		score, err := s.store.ApplyScoreUpdate(ctx, q, loan.BorrowerID, domain.PaymentDetail{
			FundedLoanID:     in.FundedLoanID,
			Category:         classification.Category,
			MagnitudeDays:    classification.MagnitudeDays,
			LoanDurationDays: classification.LoanDurationDays,
			RepaidAt:         repaidAt,
		})
		if err != nil {
			return err
		}
		borrower, err := s.store.GetWalletByID(ctx, q, loan.BorrowerID)
		if err != nil {
			return err
		}

		result = &RepaymentResult{
			FundedLoanID:    in.FundedLoanID,
			BorrowerKey:     borrower.PaymentKeyHash,
			NewScore:        score.CurrentScore,
			PaymentCategory: classification.Category,
			DaysEarlyLate:   classification.MagnitudeDays,
			LoanDuration:    classification.LoanDurationDays,
			RepaidAt:        repaidAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetCreditScore returns the user's score, creating the wallet and a default score on first query.
func (s *reconciliationService) GetCreditScore(ctx context.Context, userKey string) (*domain.CreditScore, error) {
	if err := requireField("userKey", userKey); err != nil {
		return nil, err
	}
	var score *domain.CreditScore
	err := s.inTx(ctx, "get credit score", func(q repository.DBExecutor) error {
		wallet, err := s.store.GetOrCreateWallet(ctx, q, userKey, "")
		if err != nil {
			return err
		}
		score, err = s.store.GetOrCreateCreditScore(ctx, q, wallet.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return score, nil
}

// VerifyAgainstChain deactivates every active funded loan the chain no longer reports.
func (s *reconciliationService) VerifyAgainstChain(ctx context.Context, in VerificationInput) (*VerificationResult, error) {
	result := &VerificationResult{Checked: len(in.ActiveFundedLoanIDs)}
	if len(in.ActiveFundedLoanIDs) == 0 {
		return result, nil
	}
	err := s.inTx(ctx, "verify against chain", func(q repository.DBExecutor) error {
		n, err := s.store.DeactivateStaleFundedLoans(ctx, q, in.ActiveFundedLoanIDs)
		result.Deactivated = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ActiveFundedLoanIDs lists the funded loans the ledger considers outstanding.
func (s *reconciliationService) ActiveFundedLoanIDs(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListActiveFundedLoanIDs(ctx, s.dbExecutor)
	if err != nil {
		return nil, fmt.Errorf("list active funded loans: %w", err)
	}
	return ids, nil
}

// RequestLoan records a borrower's loan request in pending status.
func (s *reconciliationService) RequestLoan(ctx context.Context, in LoanRequestInput) (*domain.LoanRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var req *domain.LoanRequest
	err := s.inTx(ctx, "request loan", func(q repository.DBExecutor) error {
		borrower, err := s.store.GetOrCreateWallet(ctx, q, in.BorrowerKey, in.BorrowerAddress)
		if err != nil {
			return err
		}
		req, err = s.store.CreateLoanRequest(ctx, q, ledger.LoanTerms{
			LoanID:     in.LoanID,
			BorrowerID: borrower.ID,
			LoanAmount: in.LoanAmount,
			Interest:   in.Interest,
			Deadline:   in.Deadline,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// MarkDefaulted moves a loan request to defaulted and deactivates its fundings.
func (s *reconciliationService) MarkDefaulted(ctx context.Context, loanID string) (*domain.LoanRequest, error) {
	if err := requireField("loanId", loanID); err != nil {
		return nil, err
	}
	var req *domain.LoanRequest
	err := s.inTx(ctx, "mark defaulted", func(q repository.DBExecutor) error {
		var err error
		req, err = s.store.MarkDefaulted(ctx, q, strings.TrimSpace(loanID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// GetUserLoans returns the user's active loans on both sides and a page of repayments.
func (s *reconciliationService) GetUserLoans(ctx context.Context, userKey string, limit, offset int) (*UserLoans, error) {
	if err := requireField("userKey", userKey); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, util.Invalid("limit must be positive")
	}
	if offset < 0 {
		return nil, util.Invalid("offset must not be negative")
	}

	wallet, err := s.store.GetWallet(ctx, s.dbExecutor, userKey)
	if err != nil {
		return nil, fmt.Errorf("get user loans: %w", err)
	}
	active, err := s.store.ListUserLoans(ctx, s.dbExecutor, wallet.ID, true)
	if err != nil {
		return nil, fmt.Errorf("get user loans: %w", err)
	}
	repayments, total, err := s.store.ListRepayments(ctx, s.dbExecutor, wallet.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get user loans: %w", err)
	}
	return &UserLoans{
		UserKey:    wallet.PaymentKeyHash,
		Active:     active,
		Repayments: repayments,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// GetUserSummary aggregates the user's activity and score.
func (s *reconciliationService) GetUserSummary(ctx context.Context, userKey string) (*domain.UserSummary, error) {
	if err := requireField("userKey", userKey); err != nil {
		return nil, err
	}
	wallet, err := s.store.GetWallet(ctx, s.dbExecutor, userKey)
	if err != nil {
		return nil, fmt.Errorf("get user summary: %w", err)
	}
	loans, err := s.store.ListUserLoans(ctx, s.dbExecutor, wallet.ID, false)
	if err != nil {
		return nil, fmt.Errorf("get user summary: %w", err)
	}
	score, err := s.store.FindCreditScore(ctx, s.dbExecutor, wallet.ID)
	if err != nil && !util.IsError(err, util.ErrNotFound) {
		return nil, fmt.Errorf("get user summary: %w", err)
	}
	return domain.Summarize(wallet, loans, score), nil
}
