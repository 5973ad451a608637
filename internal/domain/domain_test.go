// internal/domain/domain_test.go
package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCompleted},
		{OrderStatusPending, OrderStatusFailed},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusCompleted},
		{OrderStatusProcessing, OrderStatusFailed},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusCompleted, OrderStatusRefunded},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	rejected := []struct{ from, to OrderStatus }{
		{OrderStatusCompleted, OrderStatusPending},
		{OrderStatusCompleted, OrderStatusCancelled},
		{OrderStatusFailed, OrderStatusCompleted},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusRefunded, OrderStatusCompleted},
		{OrderStatusProcessing, OrderStatusPending},
		{OrderStatusPending, OrderStatusRefunded},
	}
	for _, tc := range rejected {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, OrderStatusFailed.IsTerminal())
	assert.True(t, OrderStatusRefunded.IsTerminal())
	assert.False(t, OrderStatusCompleted.IsTerminal())
}

func TestOrderCheckTransitionRequiresPaymentReference(t *testing.T) {
	t.Run("WalletWithoutTransaction", func(t *testing.T) {
		o := NewOrder(uuid.New(), nil, PaymentMethodWallet)
		assert.Error(t, o.CheckTransition(OrderStatusCompleted))
		txnID := uuid.New()
		o.WalletTransactionID = &txnID
		assert.NoError(t, o.CheckTransition(OrderStatusCompleted))
	})

	t.Run("GatewayWithoutPayment", func(t *testing.T) {
		o := NewOrder(uuid.New(), nil, PaymentMethodGateway)
		assert.Error(t, o.CheckTransition(OrderStatusCompleted))
	})

	t.Run("CashOnDelivery", func(t *testing.T) {
		o := NewOrder(uuid.New(), nil, PaymentMethodCashOnDelivery)
		assert.NoError(t, o.CheckTransition(OrderStatusCompleted))
		assert.Error(t, o.CheckTransition("shipped"))
	})
}

func TestLineItemsTotalAndTolerance(t *testing.T) {
	items := []LineItem{
		{Name: "tea", Price: decimal.RequireFromString("19.99"), Quantity: 3},
		{Name: "mug", Price: decimal.RequireFromString("60.03"), Quantity: 1},
	}
	total := LineItemsTotal(items)
	assert.True(t, decimal.RequireFromString("120").Equal(total))
	assert.True(t, WithinTolerance(total, decimal.RequireFromString("120.01")))
	assert.False(t, WithinTolerance(total, decimal.RequireFromString("120.02")))
}

func TestMetadataRejectsNestedValues(t *testing.T) {
	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"source":"app","retries":2,"gift":true}`), &m))
	assert.Equal(t, "app", m["source"].Value())
	assert.Equal(t, float64(2), m["retries"].Value())
	assert.Equal(t, true, m["gift"].Value())

	assert.Error(t, json.Unmarshal([]byte(`{"nested":{"a":1}}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"list":[1,2]}`), &m))

	raw, err := m.Value()
	require.NoError(t, err)
	var back Metadata
	require.NoError(t, back.Scan(raw))
	assert.Equal(t, "app", back["source"].Value())
}

func TestSummaries(t *testing.T) {
	stats := SummarizeTransactions([]TransactionAggregate{
		{Type: TransactionTypeGatewayPayment, Status: TransactionStatusCompleted, Count: 2, Amount: decimal.NewFromInt(500)},
		{Type: TransactionTypeWalletCredit, Status: TransactionStatusCompleted, Count: 1, Amount: decimal.NewFromInt(50)},
		{Type: TransactionTypeWalletDebit, Status: TransactionStatusCompleted, Count: 1, Amount: decimal.NewFromInt(120)},
		{Type: TransactionTypeWalletDebit, Status: TransactionStatusFailed, Count: 1, Amount: decimal.NewFromInt(999)},
		{Type: TransactionTypeOrderPayment, Status: TransactionStatusCompleted, Count: 1, Amount: decimal.NewFromInt(80)},
	})
	assert.True(t, decimal.NewFromInt(550).Equal(stats.TotalCredited))
	assert.True(t, decimal.NewFromInt(120).Equal(stats.TotalDebited))
	assert.True(t, decimal.NewFromInt(500).Equal(stats.TotalGatewayAmount))
	assert.Equal(t, int64(6), stats.TotalTransactions)
	assert.Equal(t, int64(1), stats.CountsByStatus[TransactionStatusFailed])

	orders := SummarizeOrders([]OrderAggregate{
		{Status: OrderStatusCompleted, PaymentMethod: PaymentMethodWallet, Count: 2, Amount: decimal.NewFromInt(200)},
		{Status: OrderStatusPending, PaymentMethod: PaymentMethodWallet, Count: 1, Amount: decimal.NewFromInt(10)},
		{Status: OrderStatusCompleted, PaymentMethod: PaymentMethodGateway, Count: 1, Amount: decimal.NewFromInt(90)},
	})
	assert.Equal(t, int64(4), orders.TotalOrders)
	assert.True(t, decimal.NewFromInt(300).Equal(orders.TotalAmount))
	assert.Equal(t, int64(3), orders.CountsByPaymentMethod[PaymentMethodWallet])
	assert.True(t, decimal.NewFromInt(290).Equal(orders.AmountByStatus[OrderStatusCompleted]))
}

func TestBalanceOf(t *testing.T) {
	entries := []LedgerEntry{
		{Kind: LedgerKindCredit, Amount: decimal.NewFromInt(500), Status: LedgerStatusCompleted},
		{Kind: LedgerKindDebit, Amount: decimal.NewFromInt(120), Status: LedgerStatusCompleted},
		{Kind: LedgerKindRefund, Amount: decimal.NewFromInt(20), Status: LedgerStatusCompleted},
		{Kind: LedgerKindCredit, Amount: decimal.NewFromInt(1000), Status: LedgerStatusFailed},
	}
	assert.True(t, decimal.NewFromInt(400).Equal(BalanceOf(entries)))
}
