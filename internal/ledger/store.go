// internal/ledger/store.go
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/repository"
	"chainlend-ledger/internal/scoring"
	"chainlend-ledger/internal/util"
)

// LoanTerms are the fields needed to create a LoanRequest.
type LoanTerms struct {
	LoanID     string
	BorrowerID string
	LoanAmount decimal.Decimal
	Interest   decimal.Decimal
	Deadline   decimal.Decimal
}

// Funding describes one observed funding commitment.
type Funding struct {
	LoanRequestID string
	FundedLoanID  string
	LenderID      string
	FundedAt      decimal.Decimal
	TxHash        string
	Utxos         []domain.FundingUtxo
}

// Repayment describes one observed repayment, already classified.
type Repayment struct {
	FundedLoanID   string
	RepaidAt       decimal.Decimal
	TxHash         string
	Classification domain.Classification
}

// Store implements the composite ledger operations. Every method runs on the executor it is
// given; the caller owns the transaction.
type Store struct {
	wallets    repository.WalletRepository
	requests   repository.LoanRequestRepository
	fundings   repository.FundedLoanRepository
	repayments repository.RepaidLoanRepository
	scores     repository.CreditScoreRepository
	classifier scoring.Classifier
}

// NewStore creates a new Store.
func NewStore(
	wallets repository.WalletRepository,
	requests repository.LoanRequestRepository,
	fundings repository.FundedLoanRepository,
	repayments repository.RepaidLoanRepository,
	scores repository.CreditScoreRepository,
	classifier scoring.Classifier,
) *Store {
	return &Store{
		wallets:    wallets,
		requests:   requests,
		fundings:   fundings,
		repayments: repayments,
		scores:     scores,
		classifier: classifier,
	}
}

// GetOrCreateWallet returns the wallet for paymentKeyHash, creating it on first sight.
// A non-empty walletAddress replaces a different stored display address.
func (s *Store) GetOrCreateWallet(ctx context.Context, q repository.DBExecutor, paymentKeyHash, walletAddress string) (*domain.Wallet, error) {
	paymentKeyHash = strings.TrimSpace(paymentKeyHash)
	if paymentKeyHash == "" {
		return nil, util.Invalid("payment key hash is required")
	}
	walletAddress = strings.TrimSpace(walletAddress)

	if _, err := s.wallets.CreateWallet(ctx, q, domain.NewWallet(paymentKeyHash, walletAddress)); err != nil {
		return nil, fmt.Errorf("get or create wallet: %w", err)
	}
	wallet, err := s.wallets.GetWalletByPaymentKeyHash(ctx, q, paymentKeyHash)
	if err != nil {
		return nil, fmt.Errorf("get or create wallet: %w", err)
	}
	if walletAddress != "" && wallet.WalletAddress != walletAddress {
		if err := s.wallets.UpdateWalletAddress(ctx, q, wallet.ID, walletAddress); err != nil {
			return nil, fmt.Errorf("update wallet address: %w", err)
		}
		wallet.WalletAddress = walletAddress
	}
	return wallet, nil
}

// GetWallet looks a wallet up by payment key hash.
func (s *Store) GetWallet(ctx context.Context, q repository.DBExecutor, paymentKeyHash string) (*domain.Wallet, error) {
	return s.wallets.GetWalletByPaymentKeyHash(ctx, q, paymentKeyHash)
}

// GetWalletByID looks a wallet up by its id.
func (s *Store) GetWalletByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Wallet, error) {
	return s.wallets.GetWalletByID(ctx, q, id)
}

// GetOrCreateLoanRequest records a loan request observed through a funding event. New
// requests start funded; a pending one is moved to funded. Repaid and defaulted requests
// keep their status. A known loan id with a different borrower or different terms is a
// conflict.
func (s *Store) GetOrCreateLoanRequest(ctx context.Context, q repository.DBExecutor, terms LoanTerms) (*domain.LoanRequest, error) {
	req := domain.NewLoanRequest(terms.LoanID, terms.BorrowerID, terms.LoanAmount, terms.Interest, terms.Deadline, domain.LoanStatusFunded)
	created, err := s.requests.CreateLoanRequest(ctx, q, req)
	if err != nil {
		return nil, fmt.Errorf("get or create loan request: %w", err)
	}
	if created {
		return req, nil
	}
	existing, err := s.requests.GetLoanRequestByLoanID(ctx, q, terms.LoanID)
	if err != nil {
		return nil, fmt.Errorf("get or create loan request: %w", err)
	}
	if !sameTerms(existing, terms) {
		return nil, fmt.Errorf("loan request %q: %w", terms.LoanID, util.ErrAlreadyExists)
	}
	if existing.Status.CanTransitionTo(domain.LoanStatusFunded) {
		if _, err := s.requests.TransitionStatus(ctx, q, existing.ID, domain.LoanStatusFunded, domain.LoanStatusPending); err != nil {
			return nil, fmt.Errorf("mark loan request funded: %w", err)
		}
		existing.Status = domain.LoanStatusFunded
	}
	return existing, nil
}

func sameTerms(req *domain.LoanRequest, terms LoanTerms) bool {
	return req.BorrowerID == terms.BorrowerID &&
		req.LoanAmount.Equal(terms.LoanAmount) &&
		req.Interest.Equal(terms.Interest) &&
		req.Deadline.Equal(terms.Deadline)
}

// CreateLoanRequest records a borrower's request in pending status. A known loan id is a conflict.
func (s *Store) CreateLoanRequest(ctx context.Context, q repository.DBExecutor, terms LoanTerms) (*domain.LoanRequest, error) {
	req := domain.NewLoanRequest(terms.LoanID, terms.BorrowerID, terms.LoanAmount, terms.Interest, terms.Deadline, domain.LoanStatusPending)
	created, err := s.requests.CreateLoanRequest(ctx, q, req)
	if err != nil {
		return nil, fmt.Errorf("create loan request: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("loan request %q: %w", terms.LoanID, util.ErrAlreadyExists)
	}
	return req, nil
}

// GetLoanRequest looks a loan request up by loan id.
func (s *Store) GetLoanRequest(ctx context.Context, q repository.DBExecutor, loanID string) (*domain.LoanRequest, error) {
	return s.requests.GetLoanRequestByLoanID(ctx, q, loanID)
}

// RecordFundedLoan inserts a funded loan and its utxos. A known funded loan id is left
// untouched and reported as created=false.
func (s *Store) RecordFundedLoan(ctx context.Context, q repository.DBExecutor, f Funding) (bool, error) {
	loan := domain.NewFundedLoan(f.FundedLoanID, f.LoanRequestID, f.LenderID, f.FundedAt, f.TxHash)
	created, err := s.fundings.CreateFundedLoan(ctx, q, loan)
	if err != nil {
		return false, fmt.Errorf("record funded loan: %w", err)
	}
	if !created {
		return false, nil
	}
	if err := s.fundings.AddFundingUtxos(ctx, q, f.FundedLoanID, f.Utxos); err != nil {
		return false, fmt.Errorf("record funded loan: %w", err)
	}
	return true, nil
}

// GetFundedLoan returns a funded loan with its loan terms.
func (s *Store) GetFundedLoan(ctx context.Context, q repository.DBExecutor, fundedLoanID string) (*domain.FundedLoanDetail, error) {
	return s.fundings.GetFundedLoanDetail(ctx, q, fundedLoanID)
}

// RecordRepayment deactivates the funded loan, marks its request repaid and stores the
// repayment. The deactivation runs first so concurrent repayments of one loan queue on its row.
func (s *Store) RecordRepayment(ctx context.Context, q repository.DBExecutor, r Repayment) (*domain.RepaidLoan, error) {
	if !r.Classification.Category.Valid() {
		return nil, util.Invalid("unknown payment category %q", r.Classification.Category)
	}
	if err := s.fundings.DeactivateFundedLoan(ctx, q, r.FundedLoanID); err != nil {
		return nil, fmt.Errorf("record repayment: %w", err)
	}
	repaid, err := s.repayments.ExistsForFundedLoan(ctx, q, r.FundedLoanID)
	if err != nil {
		return nil, fmt.Errorf("record repayment: %w", err)
	}
	if repaid {
		return nil, fmt.Errorf("funded loan %q: %w", r.FundedLoanID, util.ErrAlreadyRepaid)
	}

	detail, err := s.fundings.GetFundedLoanDetail(ctx, q, r.FundedLoanID)
	if err != nil {
		return nil, fmt.Errorf("record repayment: %w", err)
	}
	moved, err := s.requests.TransitionStatus(ctx, q, detail.LoanRequestID, domain.LoanStatusRepaid,
		domain.LoanStatusPending, domain.LoanStatusFunded)
	if err != nil {
		return nil, fmt.Errorf("record repayment: %w", err)
	}
	if !moved {
		req, err := s.requests.GetLoanRequestByLoanID(ctx, q, detail.LoanID)
		if err != nil {
			return nil, fmt.Errorf("record repayment: %w", err)
		}
		if req.Status == domain.LoanStatusDefaulted {
			return nil, fmt.Errorf("loan %q: %w", detail.LoanID, util.ErrLoanDefaulted)
		}
		// Repaid with another funding; the loan request is already settled.
	}

	record := domain.NewRepaidLoan(r.FundedLoanID, r.RepaidAt, r.TxHash, r.Classification)
	if err := s.repayments.CreateRepaidLoan(ctx, q, record); err != nil {
		return nil, fmt.Errorf("record repayment: %w", err)
	}
	return record, nil
}

// GetPaymentHistory returns every repayment of the borrower's loans, newest first, with the
// loan duration derived from the stored millisecond timestamps.
func (s *Store) GetPaymentHistory(ctx context.Context, q repository.DBExecutor, borrowerID string) ([]domain.PaymentDetail, error) {
	records, err := s.repayments.ListByBorrower(ctx, q, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("get payment history: %w", err)
	}
	history := make([]domain.PaymentDetail, 0, len(records))
	for _, rec := range records {
		history = append(history, domain.PaymentDetail{
			FundedLoanID:     rec.FundedLoanID,
			Category:         rec.PaymentCategory,
			MagnitudeDays:    rec.DaysEarlyLate,
			LoanDurationDays: s.classifier.LoanDurationDays(rec.Deadline, scoring.KnownTime(rec.FundedAt)),
			RepaidAt:         rec.RepaidAt,
		})
	}
	return history, nil
}

// ListRepayments returns one page of the borrower's repayments and the total count.
func (s *Store) ListRepayments(ctx context.Context, q repository.DBExecutor, borrowerID string, limit, offset int) ([]domain.RepaymentRecord, int64, error) {
	return s.repayments.PageByBorrower(ctx, q, borrowerID, limit, offset)
}

// GetOrCreateCreditScore returns the wallet's score, creating the default record if needed.
func (s *Store) GetOrCreateCreditScore(ctx context.Context, q repository.DBExecutor, walletID string) (*domain.CreditScore, error) {
	if err := s.scores.EnsureCreditScore(ctx, q, domain.NewCreditScore(walletID)); err != nil {
		return nil, fmt.Errorf("get or create credit score: %w", err)
	}
	return s.scores.GetCreditScoreByWalletID(ctx, q, walletID)
}

// ApplyScoreUpdate counts payment against the borrower and recomputes the score from the
// full history. The counter increment comes first and holds the score row until commit, so
// updates for one borrower serialize.
func (s *Store) ApplyScoreUpdate(ctx context.Context, q repository.DBExecutor, borrowerID string, payment domain.PaymentDetail) (*domain.CreditScore, error) {
	if !payment.Category.Valid() {
		return nil, util.Invalid("unknown payment category %q", payment.Category)
	}
	if err := s.scores.EnsureCreditScore(ctx, q, domain.NewCreditScore(borrowerID)); err != nil {
		return nil, fmt.Errorf("apply score update: %w", err)
	}
	if err := s.scores.IncrementCounters(ctx, q, borrowerID, payment.Category); err != nil {
		return nil, fmt.Errorf("apply score update: %w", err)
	}
	score, err := s.scores.GetCreditScoreByWalletID(ctx, q, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("apply score update: %w", err)
	}

	stored, err := s.GetPaymentHistory(ctx, q, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("apply score update: %w", err)
	}
	history := make([]domain.PaymentDetail, 0, len(stored)+1)
	for _, p := range stored {
		if p.FundedLoanID != payment.FundedLoanID {
			history = append(history, p)
		}
	}
	history = append(history, payment)

	score.CurrentScore = scoring.ComputeScore(scoring.CountersOf(score), history)
	if err := s.scores.UpdateScore(ctx, q, borrowerID, score.CurrentScore); err != nil {
		return nil, fmt.Errorf("apply score update: %w", err)
	}
	return score, nil
}

// DeactivateStaleFundedLoans deactivates every active funded loan absent from activeIDs.
// Blank ids are ignored and an empty set is a no-op.
func (s *Store) DeactivateStaleFundedLoans(ctx context.Context, q repository.DBExecutor, activeIDs []string) (int64, error) {
	seen := make(map[string]struct{}, len(activeIDs))
	keep := make([]string, 0, len(activeIDs))
	for _, id := range activeIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keep = append(keep, id)
	}
	if len(keep) == 0 {
		return 0, nil
	}
	n, err := s.fundings.DeactivateAllExcept(ctx, q, keep)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale funded loans: %w", err)
	}
	return n, nil
}

// ListActiveFundedLoanIDs returns the ids the ledger considers outstanding.
func (s *Store) ListActiveFundedLoanIDs(ctx context.Context, q repository.DBExecutor) ([]string, error) {
	return s.fundings.ListActiveFundedLoanIDs(ctx, q)
}

// MarkDefaulted moves a pending or funded loan request to defaulted and deactivates its
// fundings. Defaulting twice is a no-op; a repaid loan cannot default.
func (s *Store) MarkDefaulted(ctx context.Context, q repository.DBExecutor, loanID string) (*domain.LoanRequest, error) {
	req, err := s.requests.GetLoanRequestByLoanID(ctx, q, loanID)
	if err != nil {
		return nil, fmt.Errorf("mark defaulted: %w", err)
	}
	switch req.Status {
	case domain.LoanStatusDefaulted:
		return req, nil
	case domain.LoanStatusRepaid:
		return nil, fmt.Errorf("%w: loan %q is already repaid", util.ErrConflict, loanID)
	}

	moved, err := s.requests.TransitionStatus(ctx, q, req.ID, domain.LoanStatusDefaulted,
		domain.LoanStatusPending, domain.LoanStatusFunded)
	if err != nil {
		return nil, fmt.Errorf("mark defaulted: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: loan %q changed status concurrently", util.ErrConflict, loanID)
	}
	if _, err := s.fundings.DeactivateByLoanRequest(ctx, q, req.ID); err != nil {
		return nil, fmt.Errorf("mark defaulted: %w", err)
	}
	req.Status = domain.LoanStatusDefaulted
	return req, nil
}

// ListUserLoans returns the wallet's loans as borrower and lender, each with the outputs
// that funded it.
func (s *Store) ListUserLoans(ctx context.Context, q repository.DBExecutor, walletID string, activeOnly bool) ([]domain.UserLoan, error) {
	loans, err := s.fundings.ListUserLoans(ctx, q, walletID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list user loans: %w", err)
	}
	for i := range loans {
		utxos, err := s.fundings.ListFundingUtxos(ctx, q, loans[i].FundedLoanID)
		if err != nil {
			return nil, fmt.Errorf("list user loans: %w", err)
		}
		loans[i].FundedWith = utxos
	}
	return loans, nil
}

// FindCreditScore returns the wallet's score without creating one.
func (s *Store) FindCreditScore(ctx context.Context, q repository.DBExecutor, walletID string) (*domain.CreditScore, error) {
	return s.scores.GetCreditScoreByWalletID(ctx, q, walletID)
}
