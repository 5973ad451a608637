// internal/repository/postgres/order_pg.go
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
	"github.com/jmoiron/sqlx"
)

// OrderRepository implements repository.OrderRepository for PostgreSQL.
type OrderRepository struct{}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository() repository.OrderRepository {
	return &OrderRepository{}
}

const orderColumns = `id, order_number, short_code, account_id, total_amount, payment_method, status,
       gateway_payment_id, gateway_order_id, gateway_signature, wallet_transaction_id,
       shipping_address, tracking_number, estimated_delivery, notes, metadata, created_at, updated_at`

// CreateOrder inserts the order row and its line items. Callers run it in a
// transaction so that a failed item insert leaves nothing behind.
func (r *OrderRepository) CreateOrder(ctx context.Context, q repository.DBExecutor, order *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := q.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.ShortCode,
		order.AccountID,
		order.TotalAmount,
		order.PaymentMethod,
		order.Status,
		order.GatewayPaymentID,
		order.GatewayOrderID,
		order.GatewaySignature,
		order.WalletTransactionID,
		order.ShippingAddress,
		order.TrackingNumber,
		order.EstimatedDelivery,
		order.Notes,
		order.Metadata,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("failed to create order", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, position, product_id, name, price, quantity, image, category)
                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, item := range order.LineItems {
		if _, err := q.ExecContext(ctx, itemQuery, order.ID, i, item.ProductID, item.Name, item.Price, item.Quantity, item.Image, item.Category); err != nil {
			return fmt.Errorf("failed to insert line item %d of order %s: %w", i, order.ID, err)
		}
	}
	return nil
}

// GetOrderByID retrieves an order with its line items.
func (r *OrderRepository) GetOrderByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := q.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("order")
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}

	orders := []domain.Order{order}
	if err := r.loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByAccount retrieves a page of an account's orders, newest first.
func (r *OrderRepository) ListOrdersByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	orders := []domain.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders
              WHERE account_id = $1
              ORDER BY created_at DESC, id DESC
              LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &orders, query, accountID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders for account %s: %w", accountID, err)
	}
	if err := r.loadItems(ctx, q, orders); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders WHERE account_id = $1`, accountID); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders for account %s: %w", accountID, err)
	}
	return orders, total, nil
}

type orderItemRow struct {
	OrderID uuid.UUID `db:"order_id"`
	domain.LineItem
}

func (r *OrderRepository) loadItems(ctx context.Context, q repository.DBExecutor, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].LineItems = []domain.LineItem{}
	}

	query, args, err := sqlx.In(`SELECT order_id, product_id, name, price, quantity, image, category
                                 FROM order_items WHERE order_id IN (?) ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to build line item query: %w", err)
	}
	rows := []orderItemRow{}
	if err := q.SelectContext(ctx, &rows, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return fmt.Errorf("failed to fetch line items: %w", err)
	}
	for _, row := range rows {
		i := index[row.OrderID]
		orders[i].LineItems = append(orders[i].LineItems, row.LineItem)
	}
	return nil
}

// CountOrders counts all orders; it seeds the order number sequence.
func (r *OrderRepository) CountOrders(ctx context.Context, q repository.DBExecutor) (int64, error) {
	var count int64
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM orders`); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// ShortCodeExists reports whether a short code is taken.
func (r *OrderRepository) ShortCodeExists(ctx context.Context, q repository.DBExecutor, code string) (bool, error) {
	var exists bool
	if err := q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM orders WHERE short_code = $1)`, code); err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}
	return exists, nil
}

// UpdateOrderStatus moves an order from one status to another.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, q repository.DBExecutor, id uuid.UUID, from, to domain.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := q.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating order %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order %s is no longer %s: %w", id, from, util.ErrConflict)
	}
	return nil
}

// SetWalletTransaction links the wallet debit that paid for an order.
func (r *OrderRepository) SetWalletTransaction(ctx context.Context, q repository.DBExecutor, id, transactionID uuid.UUID) error {
	query := `UPDATE orders SET wallet_transaction_id = $1, updated_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, transactionID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to link wallet transaction to order %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after linking order %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.NotFound("order")
	}
	return nil
}

// AggregateByAccount groups an account's orders by status and payment method.
func (r *OrderRepository) AggregateByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID) ([]domain.OrderAggregate, error) {
	aggs := []domain.OrderAggregate{}
	query := `SELECT status, payment_method, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount
              FROM orders
              WHERE account_id = $1
              GROUP BY status, payment_method`
	if err := q.SelectContext(ctx, &aggs, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to aggregate orders for account %s: %w", accountID, err)
	}
	return aggs, nil
}
