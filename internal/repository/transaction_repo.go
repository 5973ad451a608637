// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"wallet-ledger/internal/domain"

	"github.com/google/uuid"
)

// TransactionRepository defines the interface for transaction log operations.
type TransactionRepository interface {
	// CreateTransaction appends a record. A reused gateway payment id yields
	// a conflict on gateway_payment_id.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	GetTransactionByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Transaction, error)
	// GetTransactionByGatewayPaymentID looks the payment id up across all accounts.
	GetTransactionByGatewayPaymentID(ctx context.Context, q DBExecutor, paymentID string) (*domain.Transaction, error)
	// FinalizeTransaction moves an open (pending or processing) record to
	// status. A record that is already final yields util.ErrConflict.
	FinalizeTransaction(ctx context.Context, q DBExecutor, id uuid.UUID, status domain.TransactionStatus, failureReason *string) error
	// ListTransactionsByAccount returns records newest first with the total count.
	ListTransactionsByAccount(ctx context.Context, q DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
	// ListStalePending returns balance-affecting pending records created before cutoff, oldest first.
	ListStalePending(ctx context.Context, q DBExecutor, cutoff time.Time, limit int) ([]domain.Transaction, error)
	AggregateByAccount(ctx context.Context, q DBExecutor, accountID uuid.UUID) ([]domain.TransactionAggregate, error)
}
