// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/repository"
	"wallet-ledger/pkg/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

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

// MockTxController is a mock implementation of db.TxController.
// It also implements repository.DBExecutor by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// mockTxFuncs hands every Begin the same controller.
func mockTxFuncs(ctrl *MockTxController) db.TxFuncs {
	return db.TxFuncs{
		Begin: func(ctx context.Context) (db.TxController, error) {
			return ctrl, nil
		},
		Commit: func(tx db.TxController) error {
			return ctrl.Commit()
		},
		Rollback: func(tx db.TxController) {
			_ = ctrl.Rollback()
		},
	}
}

// MockAccountRepository is a mock implementation of repository.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	args := m.Called(ctx, q, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyBalanceDelta(ctx context.Context, q repository.DBExecutor, id uuid.UUID, delta decimal.Decimal) error {
	args := m.Called(ctx, q, id, delta)
	return args.Error(0)
}

func (m *MockAccountRepository) InsertLedgerEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, q, entry)
	return args.Error(0)
}

func (m *MockAccountRepository) GetLedgerEntryByTransactionID(ctx context.Context, q repository.DBExecutor, transactionID uuid.UUID) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, q, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockAccountRepository) ListLedgerEntries(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	args := m.Called(ctx, q, accountID, limit, offset)
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

// MockTransactionRepository is a mock implementation of repository.TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	args := m.Called(ctx, q, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetTransactionByGatewayPaymentID(ctx context.Context, q repository.DBExecutor, paymentID string) (*domain.Transaction, error) {
	args := m.Called(ctx, q, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FinalizeTransaction(ctx context.Context, q repository.DBExecutor, id uuid.UUID, status domain.TransactionStatus, failureReason *string) error {
	args := m.Called(ctx, q, id, status, failureReason)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListTransactionsByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, q, accountID, limit, offset)
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) ListStalePending(ctx context.Context, q repository.DBExecutor, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	args := m.Called(ctx, q, cutoff, limit)
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) AggregateByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID) ([]domain.TransactionAggregate, error) {
	args := m.Called(ctx, q, accountID)
	return args.Get(0).([]domain.TransactionAggregate), args.Error(1)
}

// MockVerifier is a mock implementation of gateway.Verifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, proof gateway.Proof) (bool, error) {
	args := m.Called(ctx, proof)
	return args.Bool(0), args.Error(1)
}

// MockWalletService is a mock implementation of WalletService.
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) EnsureAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockWalletService) Credit(ctx context.Context, req CreditRequest) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockWalletService) Debit(ctx context.Context, req DebitRequest) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockWalletService) TopUpFromGateway(ctx context.Context, req TopUpRequest) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockWalletService) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) ListLedgerEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) GetStatistics(ctx context.Context, accountID uuid.UUID) (*domain.WalletStatistics, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WalletStatistics), args.Error(1)
}

func (m *MockWalletService) SettlePending(ctx context.Context, transactionID uuid.UUID) (domain.TransactionStatus, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).(domain.TransactionStatus), args.Error(1)
}
