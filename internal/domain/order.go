// internal/domain/order.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how an order is paid.
type PaymentMethod string

const (
	PaymentMethodGateway        PaymentMethod = "gateway"
	PaymentMethodWallet         PaymentMethod = "wallet"
	PaymentMethodUPI            PaymentMethod = "upi"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodNetbanking     PaymentMethod = "netbanking"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodGateway, PaymentMethodWallet, PaymentMethodUPI,
		PaymentMethodCard, PaymentMethodNetbanking, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusCompleted:  {OrderStatusRefunded},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted,
		OrderStatusFailed, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LineItem is a product snapshot taken at order time.
type LineItem struct {
	ProductID uuid.UUID       `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Image     string          `db:"image" json:"image,omitempty"`
	Category  string          `db:"category" json:"category,omitempty"`
}

// Subtotal is price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineItemsTotal sums the subtotals.
func LineItemsTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// AmountTolerance is the largest accepted gap between a declared and a
// recomputed total.
var AmountTolerance = decimal.RequireFromString("0.01")

// WithinTolerance reports whether a and b differ by at most AmountTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}

// ShippingAddress is stored as JSONB.
type ShippingAddress struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
	Country string `json:"country,omitempty"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ShippingAddress{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("shipping address: unsupported scan source")
}

// Order is a purchase request with its settlement state.
type Order struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	OrderNumber         string          `db:"order_number" json:"order_number"`
	ShortCode           string          `db:"short_code" json:"short_code"`
	AccountID           uuid.UUID       `db:"account_id" json:"account_id"`
	LineItems           []LineItem      `db:"-" json:"line_items"`
	TotalAmount         decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod       PaymentMethod   `db:"payment_method" json:"payment_method"`
	Status              OrderStatus     `db:"status" json:"status"`
	GatewayPaymentID    *string         `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	GatewayOrderID      *string         `db:"gateway_order_id" json:"gateway_order_id,omitempty"`
	GatewaySignature    *string         `db:"gateway_signature" json:"-"`
	WalletTransactionID *uuid.UUID      `db:"wallet_transaction_id" json:"wallet_transaction_id,omitempty"`
	ShippingAddress     ShippingAddress `db:"shipping_address" json:"shipping_address"`
	TrackingNumber      *string         `db:"tracking_number" json:"tracking_number,omitempty"`
	EstimatedDelivery   *time.Time      `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	Notes               string          `db:"notes" json:"notes,omitempty"`
	Metadata            Metadata        `db:"metadata" json:"metadata,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOrder creates a pending order. Identifiers are assigned at insert time.
func NewOrder(accountID uuid.UUID, items []LineItem, method PaymentMethod) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:            uuid.New(),
		AccountID:     accountID,
		LineItems:     items,
		TotalAmount:   LineItemsTotal(items),
		PaymentMethod: method,
		Status:        OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HasPaymentReference reports whether the order carries the proof its
// payment method needs before it may be completed.
func (o *Order) HasPaymentReference() bool {
	switch o.PaymentMethod {
	case PaymentMethodWallet:
		return o.WalletTransactionID != nil
	case PaymentMethodGateway:
		return o.GatewayPaymentID != nil && *o.GatewayPaymentID != ""
	}
	return true
}

// CheckTransition validates a status change against the lifecycle rules.
func (o *Order) CheckTransition(to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown order status %q", to)
	}
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("order cannot move from %s to %s", o.Status, to)
	}
	if to == OrderStatusCompleted && !o.HasPaymentReference() {
		return fmt.Errorf("%s order cannot complete without a payment reference", o.PaymentMethod)
	}
	return nil
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	c := *o
	c.LineItems = append([]LineItem(nil), o.LineItems...)
	c.Metadata = o.Metadata.Clone()
	return &c
}

// OrderAggregate is one (status, payment method) bucket of an account's orders.
type OrderAggregate struct {
	Status        OrderStatus     `db:"status"`
	PaymentMethod PaymentMethod   `db:"payment_method"`
	Count         int64           `db:"count"`
	Amount        decimal.Decimal `db:"amount"`
}

// OrderStatistics summarizes an account's orders.
type OrderStatistics struct {
	TotalOrders           int64                             `json:"total_orders"`
	TotalAmount           decimal.Decimal                   `json:"total_amount"`
	CountsByStatus        map[OrderStatus]int64             `json:"counts_by_status"`
	AmountByStatus        map[OrderStatus]decimal.Decimal   `json:"amount_by_status"`
	CountsByPaymentMethod map[PaymentMethod]int64           `json:"counts_by_payment_method"`
	AmountByPaymentMethod map[PaymentMethod]decimal.Decimal `json:"amount_by_payment_method"`
}

// SummarizeOrders folds aggregates into order statistics.
func SummarizeOrders(aggs []OrderAggregate) *OrderStatistics {
	stats := &OrderStatistics{
		TotalAmount:           decimal.Zero,
		CountsByStatus:        map[OrderStatus]int64{},
		AmountByStatus:        map[OrderStatus]decimal.Decimal{},
		CountsByPaymentMethod: map[PaymentMethod]int64{},
		AmountByPaymentMethod: map[PaymentMethod]decimal.Decimal{},
	}
	for _, a := range aggs {
		stats.TotalOrders += a.Count
		stats.TotalAmount = stats.TotalAmount.Add(a.Amount)
		stats.CountsByStatus[a.Status] += a.Count
		stats.AmountByStatus[a.Status] = stats.AmountByStatus[a.Status].Add(a.Amount)
		stats.CountsByPaymentMethod[a.PaymentMethod] += a.Count
		stats.AmountByPaymentMethod[a.PaymentMethod] = stats.AmountByPaymentMethod[a.PaymentMethod].Add(a.Amount)
	}
	return stats
}

// Product is a catalog entry used to snapshot line items.
type Product struct {
	ID       uuid.UUID       `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Image    string          `db:"image" json:"image,omitempty"`
	Category string          `db:"category" json:"category,omitempty"`
	IsActive bool            `db:"is_active" json:"is_active"`
}
