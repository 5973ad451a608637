// internal/service/wallet_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/lock"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// errBalanceRejected means the conditional balance update matched no row.
var errBalanceRejected = errors.New("balance update rejected")

// CreditRequest describes money entering a wallet.
type CreditRequest struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	// Type defaults to wallet_credit. gateway_payment and refund are also accepted.
	Type domain.TransactionType
	// ExternalReferenceID is the gateway payment id. A repeated id returns
	// the entry recorded the first time and writes nothing.
	ExternalReferenceID string
	GatewayOrderID      string
	GatewaySignature    string
	OrderID             *uuid.UUID
	Metadata            domain.Metadata
}

// DebitRequest describes money leaving a wallet.
type DebitRequest struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	OrderID       *uuid.UUID
	ReferenceID   string
	Metadata      domain.Metadata
}

// TopUpRequest credits a wallet with a payment made at the gateway.
type TopUpRequest struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string
	Proof         gateway.Proof
}

// WalletService defines the interface for wallet-related business logic.
type WalletService interface {
	EnsureAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	Credit(ctx context.Context, req CreditRequest) (*domain.LedgerEntry, error)
	Debit(ctx context.Context, req DebitRequest) (*domain.LedgerEntry, error)
	TopUpFromGateway(ctx context.Context, req TopUpRequest) (*domain.LedgerEntry, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
	ListLedgerEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error)
	GetStatistics(ctx context.Context, accountID uuid.UUID) (*domain.WalletStatistics, error)
	// SettlePending resolves a transaction left pending by a partial commit
	// and returns its final status.
	SettlePending(ctx context.Context, transactionID uuid.UUID) (domain.TransactionStatus, error)
}

// walletService implements the WalletService interface.
//
// Every balance change runs under the account's lock in two steps. First the
// transaction record is written as pending; then one store transaction
// applies the balance delta, inserts the ledger entry and completes the
// record. A failure between the two leaves a pending record that
// SettlePending resolves.
type walletService struct {
	dbExecutor      repository.DBExecutor
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	tx              db.TxFuncs
	verifier        gateway.Verifier
	locks           *lock.Keyed[uuid.UUID]
	logger          *slog.Logger
	now             func() time.Time
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	tx db.TxFuncs,
	verifier gateway.Verifier,
	logger *slog.Logger,
) WalletService {
	return &walletService{
		dbExecutor:      dbExecutor,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		tx:              tx,
		verifier:        verifier,
		locks:           lock.NewKeyed[uuid.UUID](),
		logger:          logger,
		now:             time.Now,
	}
}

// EnsureAccount returns the account, opening it with a zero balance if needed.
func (s *walletService) EnsureAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, fmt.Errorf("ensure account: failed to get account %s: %w", accountID, err)
	}

	account = domain.NewAccount(accountID)
	if err := s.accountRepo.CreateAccount(ctx, s.dbExecutor, account); err != nil {
		if errors.Is(err, util.ErrConflict) {
			return s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
		}
		return nil, fmt.Errorf("ensure account: failed to create account %s: %w", accountID, err)
	}
	return account, nil
}

// Credit adds money to an account's wallet.
func (s *walletService) Credit(ctx context.Context, req CreditRequest) (*domain.LedgerEntry, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}
	txType := req.Type
	if txType == "" {
		txType = domain.TransactionTypeWalletCredit
	}
	if !txType.IsCredit() {
		return nil, fmt.Errorf("credit: %w", util.Validation("transaction type %q does not credit a wallet", txType))
	}

	unlock := s.locks.Lock(req.AccountID)
	defer unlock()

	if _, err := s.activeAccount(ctx, req.AccountID); err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}

	if req.ExternalReferenceID != "" {
		entry, found, err := s.existingCredit(ctx, req.AccountID, req.ExternalReferenceID)
		if err != nil {
			return nil, fmt.Errorf("credit: %w", err)
		}
		if found {
			return entry, nil
		}
	}

	txn := domain.NewTransaction(req.AccountID, txType, req.Amount, req.Description, req.PaymentMethod)
	txn.GatewayPaymentID = optional(req.ExternalReferenceID)
	txn.GatewayOrderID = optional(req.GatewayOrderID)
	txn.GatewaySignature = optional(req.GatewaySignature)
	txn.OrderID = req.OrderID
	txn.Metadata = req.Metadata

	entry, err := s.record(ctx, txn)
	if err != nil && req.ExternalReferenceID != "" && util.ConflictField(err) == "gateway_payment_id" {
		// Another instance recorded the same payment between our lookup and insert.
		if existing, found, lookupErr := s.existingCredit(ctx, req.AccountID, req.ExternalReferenceID); lookupErr == nil && found {
			return existing, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}
	return entry, nil
}

// Debit removes money from an account's wallet. It never drives the balance
// below zero.
func (s *walletService) Debit(ctx context.Context, req DebitRequest) (*domain.LedgerEntry, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}

	unlock := s.locks.Lock(req.AccountID)
	defer unlock()

	account, err := s.activeAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}
	if account.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("debit: %w", util.InsufficientFunds(req.Amount, account.Balance))
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = string(domain.PaymentMethodWallet)
	}
	txn := domain.NewTransaction(req.AccountID, domain.TransactionTypeWalletDebit, req.Amount, req.Description, paymentMethod)
	txn.OrderID = req.OrderID
	txn.ReferenceID = optional(req.ReferenceID)
	txn.Metadata = req.Metadata

	entry, err := s.record(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}
	return entry, nil
}

// TopUpFromGateway verifies a gateway payment and credits it once.
func (s *walletService) TopUpFromGateway(ctx context.Context, req TopUpRequest) (*domain.LedgerEntry, error) {
	if req.Proof.PaymentID == "" {
		return nil, fmt.Errorf("top up: %w", util.Validation("gateway payment id is required"))
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("top up: %w", err)
	}

	proof := req.Proof
	proof.Amount = req.Amount
	if err := verifyPayment(ctx, s.verifier, proof); err != nil {
		return nil, fmt.Errorf("top up: %w", err)
	}

	method := req.PaymentMethod
	if method == "" {
		method = string(domain.PaymentMethodGateway)
	}
	return s.Credit(ctx, CreditRequest{
		AccountID:           req.AccountID,
		Amount:              req.Amount,
		Description:         "Added money via " + method,
		PaymentMethod:       method,
		Type:                domain.TransactionTypeGatewayPayment,
		ExternalReferenceID: proof.PaymentID,
		GatewayOrderID:      proof.OrderID,
		GatewaySignature:    proof.Signature,
	})
}

// GetBalance returns the latest committed balance.
func (s *walletService) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return account.Balance, nil
}

// ListTransactions retrieves a page of the account's transaction log.
func (s *walletService) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	if _, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	limit, offset = normalizePage(limit, offset)
	transactions, total, err := s.transactionRepo.ListTransactionsByAccount(ctx, s.dbExecutor, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, total, nil
}

// ListLedgerEntries retrieves a page of the account's ledger.
func (s *walletService) ListLedgerEntries(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	if _, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID); err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	limit, offset = normalizePage(limit, offset)
	entries, total, err := s.accountRepo.ListLedgerEntries(ctx, s.dbExecutor, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, total, nil
}

// GetStatistics summarizes the account's wallet activity.
func (s *walletService) GetStatistics(ctx context.Context, accountID uuid.UUID) (*domain.WalletStatistics, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("wallet statistics: %w", err)
	}
	aggs, err := s.transactionRepo.AggregateByAccount(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("wallet statistics: %w", err)
	}
	_, entryCount, err := s.accountRepo.ListLedgerEntries(ctx, s.dbExecutor, accountID, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("wallet statistics: %w", err)
	}

	stats := domain.SummarizeTransactions(aggs)
	stats.CurrentBalance = account.Balance
	stats.LedgerEntryCount = entryCount
	return stats, nil
}

// SettlePending finishes a record left pending by a partial commit. A record
// whose ledger entry exists is completed. Otherwise the balance change is
// replayed, except for order debits: the order was already failed, so the
// debit is failed too.
func (s *walletService) SettlePending(ctx context.Context, transactionID uuid.UUID) (domain.TransactionStatus, error) {
	txn, err := s.transactionRepo.GetTransactionByID(ctx, s.dbExecutor, transactionID)
	if err != nil {
		return "", fmt.Errorf("settle pending: %w", err)
	}

	unlock := s.locks.Lock(txn.AccountID)
	defer unlock()

	txn, err = s.transactionRepo.GetTransactionByID(ctx, s.dbExecutor, transactionID)
	if err != nil {
		return "", fmt.Errorf("settle pending: %w", err)
	}
	if !txn.Status.IsOpen() || !txn.Type.AffectsBalance() {
		return txn.Status, nil
	}

	if _, err := s.accountRepo.GetLedgerEntryByTransactionID(ctx, s.dbExecutor, txn.ID); err == nil {
		if err := s.finalize(ctx, txn.ID, domain.TransactionStatusCompleted, nil); err != nil {
			return txn.Status, fmt.Errorf("settle pending: %w", err)
		}
		return domain.TransactionStatusCompleted, nil
	} else if !errors.Is(err, util.ErrNotFound) {
		return txn.Status, fmt.Errorf("settle pending: %w", err)
	}

	if !txn.Type.IsCredit() && txn.OrderID != nil {
		reason := "order payment abandoned"
		if err := s.finalize(ctx, txn.ID, domain.TransactionStatusFailed, &reason); err != nil {
			return txn.Status, fmt.Errorf("settle pending: %w", err)
		}
		return domain.TransactionStatusFailed, nil
	}

	if _, err := s.apply(ctx, txn); err != nil {
		if errors.Is(err, errBalanceRejected) {
			reason := "insufficient funds"
			if err := s.finalize(ctx, txn.ID, domain.TransactionStatusFailed, &reason); err != nil {
				return txn.Status, fmt.Errorf("settle pending: %w", err)
			}
			return domain.TransactionStatusFailed, nil
		}
		return txn.Status, fmt.Errorf("settle pending: %w", err)
	}
	return domain.TransactionStatusCompleted, nil
}

// existingCredit resolves a repeated gateway payment id. Callers hold the
// account lock.
func (s *walletService) existingCredit(ctx context.Context, accountID uuid.UUID, paymentID string) (*domain.LedgerEntry, bool, error) {
	existing, err := s.transactionRepo.GetTransactionByGatewayPaymentID(ctx, s.dbExecutor, paymentID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if existing.AccountID != accountID || !existing.Type.IsCredit() {
		return nil, false, util.Conflict("gateway_payment_id")
	}

	switch {
	case existing.Status == domain.TransactionStatusCompleted:
		entry, err := s.accountRepo.GetLedgerEntryByTransactionID(ctx, s.dbExecutor, existing.ID)
		if err != nil {
			return nil, false, err
		}
		return entry, true, nil
	case existing.Status.IsOpen():
		entry, err := s.settleCredit(ctx, existing)
		if err != nil {
			return nil, false, err
		}
		return entry, true, nil
	default:
		return nil, false, util.Conflict("gateway_payment_id")
	}
}

// settleCredit finishes an open credit record, reusing its entry if one exists.
func (s *walletService) settleCredit(ctx context.Context, txn *domain.Transaction) (*domain.LedgerEntry, error) {
	entry, err := s.accountRepo.GetLedgerEntryByTransactionID(ctx, s.dbExecutor, txn.ID)
	if err == nil {
		if err := s.finalize(ctx, txn.ID, domain.TransactionStatusCompleted, nil); err != nil {
			return nil, err
		}
		return entry, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	entry, err = s.apply(ctx, txn)
	if err != nil {
		return nil, util.PartialCommit(txn.ID, err)
	}
	return entry, nil
}

// record writes the pending intent, then applies it.
func (s *walletService) record(ctx context.Context, txn *domain.Transaction) (*domain.LedgerEntry, error) {
	if err := s.transactionRepo.CreateTransaction(ctx, s.dbExecutor, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	entry, err := s.apply(ctx, txn)
	if err == nil {
		return entry, nil
	}

	if errors.Is(err, errBalanceRejected) {
		reason := "insufficient funds"
		if ferr := s.finalize(ctx, txn.ID, domain.TransactionStatusFailed, &reason); ferr != nil {
			s.logger.Error("Failed to mark rejected debit as failed", "transaction_id", txn.ID, "error", ferr)
			return nil, util.PartialCommit(txn.ID, ferr)
		}
		available := decimal.Zero
		if account, aerr := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, txn.AccountID); aerr == nil {
			available = account.Balance
		}
		return nil, util.InsufficientFunds(txn.Amount, available)
	}

	s.logger.Error("Ledger write partially committed", "transaction_id", txn.ID, "account_id", txn.AccountID, "error", err)
	return nil, util.PartialCommit(txn.ID, err)
}

// apply runs the second step: balance delta, ledger entry and completion in
// one store transaction.
func (s *walletService) apply(ctx context.Context, txn *domain.Transaction) (*domain.LedgerEntry, error) {
	txController, err := s.tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.tx.Rollback(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("transaction controller does not implement DBExecutor")
	}

	if err := s.accountRepo.ApplyBalanceDelta(ctx, txExecutor, txn.AccountID, txn.BalanceDelta()); err != nil {
		if errors.Is(err, util.ErrInsufficientFunds) {
			return nil, errBalanceRejected
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	entry := txn.NewLedgerEntry(s.now().UTC())
	if err := s.accountRepo.InsertLedgerEntry(ctx, txExecutor, entry); err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	if err := s.transactionRepo.FinalizeTransaction(ctx, txExecutor, txn.ID, domain.TransactionStatusCompleted, nil); err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}

	if err := s.tx.Commit(txController); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	txn.Status = domain.TransactionStatusCompleted
	return entry, nil
}

func (s *walletService) finalize(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, reason *string) error {
	return s.transactionRepo.FinalizeTransaction(ctx, s.dbExecutor, id, status, reason)
}

func (s *walletService) activeAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, util.NotFound("account")
	}
	return account, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return util.Validation("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return util.Validation("amount must have at most two decimal places")
	}
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// verifyPayment maps a verifier's answer onto the error taxonomy.
func verifyPayment(ctx context.Context, verifier gateway.Verifier, proof gateway.Proof) error {
	if verifier == nil {
		return util.Upstream("payment gateway", errors.New("no verifier configured"))
	}
	ok, err := verifier.Verify(ctx, proof)
	if err != nil {
		return util.Upstream("payment gateway", err)
	}
	if !ok {
		return util.Validation("payment verification failed")
	}
	return nil
}
