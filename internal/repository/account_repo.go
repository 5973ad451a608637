// internal/repository/account_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository stores accounts and their ledger entries.
type AccountRepository interface {
	// CreateAccount inserts an account. An existing id yields util.ErrConflict.
	CreateAccount(ctx context.Context, q DBExecutor, account *domain.Account) error
	// GetAccountByID returns util.ErrNotFound when the account does not exist.
	GetAccountByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Account, error)
	// ApplyBalanceDelta adds delta to the balance only if the result stays
	// non-negative. Otherwise it returns util.ErrInsufficientFunds and changes nothing.
	ApplyBalanceDelta(ctx context.Context, q DBExecutor, id uuid.UUID, delta decimal.Decimal) error
	// InsertLedgerEntry appends an entry to the account's ledger.
	InsertLedgerEntry(ctx context.Context, q DBExecutor, entry *domain.LedgerEntry) error
	// GetLedgerEntryByTransactionID returns util.ErrNotFound when the record has no entry yet.
	GetLedgerEntryByTransactionID(ctx context.Context, q DBExecutor, transactionID uuid.UUID) (*domain.LedgerEntry, error)
	// ListLedgerEntries returns entries newest first with the total count.
	ListLedgerEntries(ctx context.Context, q DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error)
}
