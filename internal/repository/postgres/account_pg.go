// internal/repository/postgres/account_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository implements repository.AccountRepository for PostgreSQL.
type AccountRepository struct{}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository() repository.AccountRepository {
	return &AccountRepository{}
}

// CreateAccount inserts a new account using the provided DBExecutor.
func (r *AccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	query := `INSERT INTO accounts (id, balance, is_active, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5)`
	_, err := q.ExecContext(ctx, query, account.ID, account.Balance, account.IsActive, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return mapWriteError("failed to create account", err)
	}
	return nil
}

// GetAccountByID retrieves an account by its ID.
func (r *AccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, balance, is_active, created_at, updated_at FROM accounts WHERE id = $1`
	if err := q.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("account")
		}
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &account, nil
}

// ApplyBalanceDelta is a conditional update: the WHERE clause rejects a
// delta that would take the balance below zero, so concurrent writers on
// other instances can never overdraw.
func (r *AccountRepository) ApplyBalanceDelta(ctx context.Context, q repository.DBExecutor, id uuid.UUID, delta decimal.Decimal) error {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = $2
              WHERE id = $3 AND balance + $1 >= 0`
	result, err := q.ExecContext(ctx, query, delta, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating balance for account %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrInsufficientFunds
	}
	return nil
}

// InsertLedgerEntry appends a ledger entry.
func (r *AccountRepository) InsertLedgerEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, account_id, transaction_id, kind, amount, description, payment_method, status, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := q.ExecContext(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.TransactionID,
		entry.Kind,
		entry.Amount,
		entry.Description,
		entry.PaymentMethod,
		entry.Status,
		entry.CreatedAt,
	)
	if err != nil {
		return mapWriteError("failed to insert ledger entry", err)
	}
	return nil
}

const ledgerColumns = `id, account_id, transaction_id, kind, amount, description, payment_method, status, created_at`

// GetLedgerEntryByTransactionID retrieves the entry written for a transaction record.
func (r *AccountRepository) GetLedgerEntryByTransactionID(ctx context.Context, q repository.DBExecutor, transactionID uuid.UUID) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE transaction_id = $1`
	if err := q.GetContext(ctx, &entry, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("ledger entry")
		}
		return nil, fmt.Errorf("failed to get ledger entry for transaction %s: %w", transactionID, err)
	}
	return &entry, nil
}

// ListLedgerEntries retrieves a page of an account's ledger, newest first.
func (r *AccountRepository) ListLedgerEntries(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	entries := []domain.LedgerEntry{}
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
              WHERE account_id = $1
              ORDER BY created_at DESC, id DESC
              LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &entries, query, accountID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger entries for account %s: %w", accountID, err)
	}

	var total int64
	if err := q.GetContext(ctx, &total, `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`, accountID); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries for account %s: %w", accountID, err)
	}
	return entries, total, nil
}
