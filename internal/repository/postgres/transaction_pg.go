// internal/repository/postgres/transaction_pg.go
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
)

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() repository.TransactionRepository {
	return &TransactionRepository{}
}

const transactionColumns = `id, account_id, type, amount, description, status, payment_method,
       gateway_payment_id, gateway_order_id, gateway_signature, order_id, reference_id,
       failure_reason, metadata, created_at, updated_at`

// CreateTransaction inserts a new transaction record using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := q.ExecContext(ctx, query,
		transaction.ID,
		transaction.AccountID,
		transaction.Type,
		transaction.Amount,
		transaction.Description,
		transaction.Status,
		transaction.PaymentMethod,
		transaction.GatewayPaymentID,
		transaction.GatewayOrderID,
		transaction.GatewaySignature,
		transaction.OrderID,
		transaction.ReferenceID,
		transaction.FailureReason,
		transaction.Metadata,
		transaction.CreatedAt,
		transaction.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("failed to create transaction", err)
	}
	return nil
}

// GetTransactionByID retrieves a transaction record by its ID.
func (r *TransactionRepository) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Transaction, error) {
	var txn domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if err := q.GetContext(ctx, &txn, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("transaction")
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return &txn, nil
}

// GetTransactionByGatewayPaymentID retrieves the record holding a gateway payment id.
func (r *TransactionRepository) GetTransactionByGatewayPaymentID(ctx context.Context, q repository.DBExecutor, paymentID string) (*domain.Transaction, error) {
	var txn domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway_payment_id = $1`
	if err := q.GetContext(ctx, &txn, query, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("transaction")
		}
		return nil, fmt.Errorf("failed to get transaction by gateway payment %q: %w", paymentID, err)
	}
	return &txn, nil
}

// FinalizeTransaction moves an open record to its final status exactly once.
func (r *TransactionRepository) FinalizeTransaction(ctx context.Context, q repository.DBExecutor, id uuid.UUID, status domain.TransactionStatus, failureReason *string) error {
	query := `UPDATE transactions SET status = $1, failure_reason = $2, updated_at = $3
              WHERE id = $4 AND status IN ('pending', 'processing')`
	result, err := q.ExecContext(ctx, query, status, failureReason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finalize transaction %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after finalizing transaction %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s is not open: %w", id, util.ErrConflict)
	}
	return nil
}

// ListTransactionsByAccount retrieves a paginated list of an account's records.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) ListTransactionsByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	transactions := []domain.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions
              WHERE account_id = $1
              ORDER BY created_at DESC, id DESC
              LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &transactions, query, accountID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for account %s: %w", accountID, err)
	}

	var totalCount int64
	if err := q.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID); err != nil {
		return nil, 0, fmt.Errorf("failed to get total transaction count for account %s: %w", accountID, err)
	}
	return transactions, totalCount, nil
}

// ListStalePending finds intents whose balance effect may never have landed.
func (r *TransactionRepository) ListStalePending(ctx context.Context, q repository.DBExecutor, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	transactions := []domain.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions
              WHERE status = 'pending' AND created_at < $1
                AND type IN ('wallet_credit', 'wallet_debit', 'gateway_payment', 'refund')
              ORDER BY created_at
              LIMIT $2`
	if err := q.SelectContext(ctx, &transactions, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}
	return transactions, nil
}

// AggregateByAccount groups an account's records by type and status.
func (r *TransactionRepository) AggregateByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID) ([]domain.TransactionAggregate, error) {
	aggs := []domain.TransactionAggregate{}
	query := `SELECT type, status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount
              FROM transactions
              WHERE account_id = $1
              GROUP BY type, status`
	if err := q.SelectContext(ctx, &aggs, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions for account %s: %w", accountID, err)
	}
	return aggs, nil
}
