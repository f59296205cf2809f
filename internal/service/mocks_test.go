// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/ledger"
	"chainlend-ledger/internal/repository"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

func (m *MockDBExecutor) Rebind(query string) string {
	return query
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It also implicitly implements repository.DBExecutor for testing purposes
// by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor // Embed MockDBExecutor to satisfy repository.DBExecutor interface
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockLedgerStore is a mock implementation of LedgerStore.
type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) GetOrCreateWallet(ctx context.Context, q repository.DBExecutor, paymentKeyHash, walletAddress string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, paymentKeyHash, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockLedgerStore) GetWallet(ctx context.Context, q repository.DBExecutor, paymentKeyHash string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, paymentKeyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockLedgerStore) GetWalletByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockLedgerStore) GetOrCreateLoanRequest(ctx context.Context, q repository.DBExecutor, terms ledger.LoanTerms) (*domain.LoanRequest, error) {
	args := m.Called(ctx, q, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRequest), args.Error(1)
}

func (m *MockLedgerStore) CreateLoanRequest(ctx context.Context, q repository.DBExecutor, terms ledger.LoanTerms) (*domain.LoanRequest, error) {
	args := m.Called(ctx, q, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRequest), args.Error(1)
}

func (m *MockLedgerStore) RecordFundedLoan(ctx context.Context, q repository.DBExecutor, f ledger.Funding) (bool, error) {
	args := m.Called(ctx, q, f)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerStore) GetFundedLoan(ctx context.Context, q repository.DBExecutor, fundedLoanID string) (*domain.FundedLoanDetail, error) {
	args := m.Called(ctx, q, fundedLoanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FundedLoanDetail), args.Error(1)
}

func (m *MockLedgerStore) RecordRepayment(ctx context.Context, q repository.DBExecutor, r ledger.Repayment) (*domain.RepaidLoan, error) {
	args := m.Called(ctx, q, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepaidLoan), args.Error(1)
}

func (m *MockLedgerStore) ApplyScoreUpdate(ctx context.Context, q repository.DBExecutor, borrowerID string, payment domain.PaymentDetail) (*domain.CreditScore, error) {
	args := m.Called(ctx, q, borrowerID, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditScore), args.Error(1)
}

func (m *MockLedgerStore) GetOrCreateCreditScore(ctx context.Context, q repository.DBExecutor, walletID string) (*domain.CreditScore, error) {
	args := m.Called(ctx, q, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditScore), args.Error(1)
}

func (m *MockLedgerStore) FindCreditScore(ctx context.Context, q repository.DBExecutor, walletID string) (*domain.CreditScore, error) {
	args := m.Called(ctx, q, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditScore), args.Error(1)
}

func (m *MockLedgerStore) DeactivateStaleFundedLoans(ctx context.Context, q repository.DBExecutor, activeIDs []string) (int64, error) {
	args := m.Called(ctx, q, activeIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerStore) ListActiveFundedLoanIDs(ctx context.Context, q repository.DBExecutor) ([]string, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedgerStore) MarkDefaulted(ctx context.Context, q repository.DBExecutor, loanID string) (*domain.LoanRequest, error) {
	args := m.Called(ctx, q, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRequest), args.Error(1)
}

func (m *MockLedgerStore) ListUserLoans(ctx context.Context, q repository.DBExecutor, walletID string, activeOnly bool) ([]domain.UserLoan, error) {
	args := m.Called(ctx, q, walletID, activeOnly)
	return args.Get(0).([]domain.UserLoan), args.Error(1)
}

func (m *MockLedgerStore) ListRepayments(ctx context.Context, q repository.DBExecutor, borrowerID string, limit, offset int) ([]domain.RepaymentRecord, int64, error) {
	args := m.Called(ctx, q, borrowerID, limit, offset)
	return args.Get(0).([]domain.RepaymentRecord), args.Get(1).(int64), args.Error(2)
}
