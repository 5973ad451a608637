// internal/repository/order_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order data operations.
type OrderRepository interface {
	// CreateOrder inserts the order and its line items. Collisions yield a
	// conflict naming order_number, short_code or gateway_payment_id.
	CreateOrder(ctx context.Context, q DBExecutor, order *domain.Order) error
	GetOrderByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Order, error)
	ListOrdersByAccount(ctx context.Context, q DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.Order, int64, error)
	CountOrders(ctx context.Context, q DBExecutor) (int64, error)
	ShortCodeExists(ctx context.Context, q DBExecutor, code string) (bool, error)
	// UpdateOrderStatus is a compare-and-set on the current status. A stale
	// from yields util.ErrConflict.
	UpdateOrderStatus(ctx context.Context, q DBExecutor, id uuid.UUID, from, to domain.OrderStatus) error
	SetWalletTransaction(ctx context.Context, q DBExecutor, id, transactionID uuid.UUID) error
	AggregateByAccount(ctx context.Context, q DBExecutor, accountID uuid.UUID) ([]domain.OrderAggregate, error)
}
