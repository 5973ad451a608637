// internal/repository/memory/order.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRepository implements repository.OrderRepository on a Store.
type OrderRepository struct {
	store *Store
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(store *Store) repository.OrderRepository {
	return &OrderRepository{store: store}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, q repository.DBExecutor, order *domain.Order) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		if _, exists := s.orders[order.ID]; exists {
			return nil, util.Conflict("id")
		}
		if _, taken := s.orderNumbers[order.OrderNumber]; taken {
			return nil, util.Conflict("order_number")
		}
		if _, taken := s.shortCodes[order.ShortCode]; taken {
			return nil, util.Conflict("short_code")
		}
		paymentID := order.GatewayPaymentID
		if paymentID != nil {
			if _, taken := s.gatewayOrders[*paymentID]; taken {
				return nil, util.Conflict("gateway_payment_id")
			}
			s.gatewayOrders[*paymentID] = order.ID
		}
		s.orders[order.ID] = &orderRow{seq: s.nextSeq(), order: order.Clone()}
		s.orderNumbers[order.OrderNumber] = order.ID
		s.shortCodes[order.ShortCode] = order.ID
		return func() {
			delete(s.orders, order.ID)
			delete(s.orderNumbers, order.OrderNumber)
			delete(s.shortCodes, order.ShortCode)
			if paymentID != nil {
				delete(s.gatewayOrders, *paymentID)
			}
		}, nil
	})
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	r.store.read(func() {
		if row, ok := r.store.orders[id]; ok {
			out = row.order.Clone()
		}
	})
	if out == nil {
		return nil, util.NotFound("order")
	}
	return out, nil
}

func (r *OrderRepository) ListOrdersByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	rows := r.collect(accountID)
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	page := paginate(rows, limit, offset)
	out := make([]domain.Order, 0, len(page))
	for _, row := range page {
		out = append(out, *row.order)
	}
	return out, int64(len(rows)), nil
}

func (r *OrderRepository) CountOrders(ctx context.Context, q repository.DBExecutor) (int64, error) {
	var n int
	r.store.read(func() { n = len(r.store.orders) })
	return int64(n), nil
}

func (r *OrderRepository) ShortCodeExists(ctx context.Context, q repository.DBExecutor, code string) (bool, error) {
	var taken bool
	r.store.read(func() { _, taken = r.store.shortCodes[code] })
	return taken, nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, q repository.DBExecutor, id uuid.UUID, from, to domain.OrderStatus) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		row, ok := s.orders[id]
		if !ok {
			return nil, util.NotFound("order")
		}
		if row.order.Status != from {
			return nil, fmt.Errorf("order %s is no longer %s: %w", id, from, util.ErrConflict)
		}
		prevUpdated := row.order.UpdatedAt
		row.order.Status = to
		row.order.UpdatedAt = time.Now().UTC()
		return func() {
			row.order.Status = from
			row.order.UpdatedAt = prevUpdated
		}, nil
	})
}

func (r *OrderRepository) SetWalletTransaction(ctx context.Context, q repository.DBExecutor, id, transactionID uuid.UUID) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		row, ok := s.orders[id]
		if !ok {
			return nil, util.NotFound("order")
		}
		prev := row.order.WalletTransactionID
		linked := transactionID
		row.order.WalletTransactionID = &linked
		row.order.UpdatedAt = time.Now().UTC()
		return func() { row.order.WalletTransactionID = prev }, nil
	})
}

func (r *OrderRepository) AggregateByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID) ([]domain.OrderAggregate, error) {
	type bucket struct {
		s domain.OrderStatus
		m domain.PaymentMethod
	}
	sums := map[bucket]*domain.OrderAggregate{}
	var order []bucket
	for _, row := range r.collect(accountID) {
		k := bucket{row.order.Status, row.order.PaymentMethod}
		agg, ok := sums[k]
		if !ok {
			agg = &domain.OrderAggregate{Status: k.s, PaymentMethod: k.m, Amount: decimal.Zero}
			sums[k] = agg
			order = append(order, k)
		}
		agg.Count++
		agg.Amount = agg.Amount.Add(row.order.TotalAmount)
	}
	out := make([]domain.OrderAggregate, 0, len(order))
	for _, k := range order {
		out = append(out, *sums[k])
	}
	return out, nil
}

func (r *OrderRepository) collect(accountID uuid.UUID) []orderRow {
	var rows []orderRow
	r.store.read(func() {
		for _, row := range r.store.orders {
			if row.order.AccountID == accountID {
				rows = append(rows, orderRow{seq: row.seq, order: row.order.Clone()})
			}
		}
	})
	return rows
}
