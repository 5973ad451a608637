// internal/service/order_service_test.go
package service

import (
	"context"
	"errors"
	"testing"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	accountID := h.newAccount(t, "100")

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"NoItems", CreateOrderRequest{PaymentMethod: domain.PaymentMethodCard}},
		{"ZeroQuantity", CreateOrderRequest{LineItems: []domain.LineItem{item("5", 0)}, PaymentMethod: domain.PaymentMethodCard}},
		{"NegativePrice", CreateOrderRequest{LineItems: []domain.LineItem{item("-5", 1)}, DeclaredTotal: decimal.NewFromInt(-5), PaymentMethod: domain.PaymentMethodCard}},
		{"UnknownMethod", CreateOrderRequest{LineItems: []domain.LineItem{item("5", 1)}, DeclaredTotal: decimal.NewFromInt(5), PaymentMethod: "crypto"}},
		{"GatewayWithoutProof", CreateOrderRequest{LineItems: []domain.LineItem{item("5", 1)}, DeclaredTotal: decimal.NewFromInt(5), PaymentMethod: domain.PaymentMethodGateway}},
		{"WalletZeroTotal", CreateOrderRequest{LineItems: []domain.LineItem{item("0", 1)}, PaymentMethod: domain.PaymentMethodWallet}},
		{"WalletSubCentPrice", CreateOrderRequest{LineItems: []domain.LineItem{item("10.005", 1)}, DeclaredTotal: decimal.RequireFromString("10.005"), PaymentMethod: domain.PaymentMethodWallet}},
		{"OfflineSubCentPrice", CreateOrderRequest{LineItems: []domain.LineItem{item("0.001", 2)}, DeclaredTotal: decimal.RequireFromString("0.002"), PaymentMethod: domain.PaymentMethodCashOnDelivery}},
		{"AmountMismatch", CreateOrderRequest{LineItems: []domain.LineItem{item("33.33", 3)}, DeclaredTotal: decimal.RequireFromString("100.01"), PaymentMethod: domain.PaymentMethodCard}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.AccountID = accountID
			_, err := h.orderSvc.CreateOrder(ctx, tc.req)
			assert.ErrorIs(t, err, util.ErrInvalidInput)
		})
	}

	_, total, err := h.orderSvc.ListOrders(ctx, accountID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.True(t, decimal.NewFromInt(100).Equal(h.balance(t, accountID)))

	t.Run("GatewayZeroTotal", func(t *testing.T) {
		proof := h.proof("pay_free")
		_, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
			AccountID:     accountID,
			LineItems:     []domain.LineItem{item("0", 2)},
			PaymentMethod: domain.PaymentMethodGateway,
			GatewayProof:  &proof,
		})
		assert.ErrorIs(t, err, util.ErrInvalidInput)

		_, err = h.txns.GetTransactionByGatewayPaymentID(ctx, h.store, "pay_free")
		assert.ErrorIs(t, err, util.ErrNotFound)
		_, total, err := h.orderSvc.ListOrders(ctx, accountID, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("MismatchDetails", func(t *testing.T) {
		_, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
			AccountID:     accountID,
			LineItems:     []domain.LineItem{item("10", 2)},
			DeclaredTotal: decimal.NewFromInt(25),
			PaymentMethod: domain.PaymentMethodCard,
		})
		var appErr *util.Error
		require.True(t, errors.As(err, &appErr))
		assert.True(t, decimal.NewFromInt(20).Equal(appErr.Details["computed"].(decimal.Decimal)))
	})

	t.Run("WithinTolerance", func(t *testing.T) {
		order, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
			AccountID:     accountID,
			LineItems:     []domain.LineItem{item("33.33", 3)},
			DeclaredTotal: decimal.NewFromInt(100),
			PaymentMethod: domain.PaymentMethodCard,
		})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("99.99").Equal(order.TotalAmount))
		assert.Equal(t, domain.OrderStatusPending, order.Status)
	})
}

func TestCreateOrderSnapshotsCatalog(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withCatalog())
	accountID := h.newAccount(t, "0")

	kettle := &domain.Product{ID: uuid.New(), Name: "Kettle", Price: decimal.RequireFromString("49.50"), Image: "kettle.png", Category: "kitchen", IsActive: true}
	require.NoError(t, h.products.UpsertProduct(ctx, h.store, kettle))

	order, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
		AccountID: accountID,
		LineItems: []domain.LineItem{{
			ProductID: kettle.ID,
			Name:      "Cheap kettle",
			Price:     decimal.NewFromInt(1),
			Quantity:  2,
		}},
		DeclaredTotal:   decimal.NewFromInt(99),
		PaymentMethod:   domain.PaymentMethodCashOnDelivery,
		ShippingAddress: domain.ShippingAddress{City: "Pune"},
		Notes:           "leave at door",
	})
	require.NoError(t, err)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, "Kettle", order.LineItems[0].Name)
	assert.Equal(t, "kitchen", order.LineItems[0].Category)
	assert.True(t, decimal.RequireFromString("99.00").Equal(order.TotalAmount))

	stored, err := h.orderSvc.GetOrder(ctx, order.ID, accountID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", stored.LineItems[0].Name)
	assert.Equal(t, "leave at door", stored.Notes)

	t.Run("UnknownProduct", func(t *testing.T) {
		_, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
			AccountID:     accountID,
			LineItems:     []domain.LineItem{item("5", 1)},
			DeclaredTotal: decimal.NewFromInt(5),
			PaymentMethod: domain.PaymentMethodCard,
		})
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})
}

func TestCreateOrderWritesInsideTransaction(t *testing.T) {
	ctx := context.Background()
	recorder := &txCheckingOrders{}
	h := newHarness(t, withOrderWrapper(func(repo repository.OrderRepository) repository.OrderRepository {
		recorder.OrderRepository = repo
		return recorder
	}))
	accountID := h.newAccount(t, "100")
	proof := h.proof("pay_tx")

	requests := []CreateOrderRequest{
		{LineItems: []domain.LineItem{item("20", 1)}, DeclaredTotal: decimal.NewFromInt(20), PaymentMethod: domain.PaymentMethodWallet},
		{LineItems: []domain.LineItem{item("5", 2)}, DeclaredTotal: decimal.NewFromInt(10), PaymentMethod: domain.PaymentMethodCashOnDelivery},
		{LineItems: []domain.LineItem{item("8", 1)}, DeclaredTotal: decimal.NewFromInt(8), PaymentMethod: domain.PaymentMethodGateway, GatewayProof: &proof},
	}
	for _, req := range requests {
		req.AccountID = accountID
		_, err := h.orderSvc.CreateOrder(ctx, req)
		require.NoError(t, err, req.PaymentMethod)
	}

	assert.Equal(t, int32(3), recorder.inserts.Load())
	assert.Zero(t, recorder.outsideTxn.Load())
}

func TestGetOrderOwnership(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.newAccount(t, "0")
	stranger := h.newAccount(t, "0")

	order, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
		AccountID:     owner,
		LineItems:     []domain.LineItem{item("12", 1)},
		DeclaredTotal: decimal.NewFromInt(12),
		PaymentMethod: domain.PaymentMethodNetbanking,
	})
	require.NoError(t, err)

	_, err = h.orderSvc.GetOrder(ctx, order.ID, stranger)
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = h.orderSvc.GetOrder(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = h.orderSvc.UpdateStatus(ctx, order.ID, stranger, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	accountID := h.newAccount(t, "100")

	t.Run("Lifecycle", func(t *testing.T) {
		order, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
			AccountID:     accountID,
			LineItems:     []domain.LineItem{item("30", 1)},
			DeclaredTotal: decimal.NewFromInt(30),
			PaymentMethod: domain.PaymentMethodCashOnDelivery,
		})
		require.NoError(t, err)

		for _, next := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusCompleted, domain.OrderStatusRefunded} {
			updated, err := h.orderSvc.UpdateStatus(ctx, order.ID, accountID, next)
			require.NoError(t, err, next)
			assert.Equal(t, next, updated.Status)
		}

		_, err = h.orderSvc.UpdateStatus(ctx, order.ID, accountID, domain.OrderStatusPending)
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})

	t.Run("CompletedCannotGoBack", func(t *testing.T) {
		order, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
			AccountID:     accountID,
			LineItems:     []domain.LineItem{item("10", 1)},
			DeclaredTotal: decimal.NewFromInt(10),
			PaymentMethod: domain.PaymentMethodWallet,
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusCompleted, order.Status)

		_, err = h.orderSvc.UpdateStatus(ctx, order.ID, accountID, domain.OrderStatusPending)
		assert.ErrorIs(t, err, util.ErrInvalidInput)
		_, err = h.orderSvc.UpdateStatus(ctx, order.ID, accountID, "shipped")
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})

	t.Run("UnpaidWalletOrderCannotComplete", func(t *testing.T) {
		wrapped := newHarness(t, withWalletWrapper(func(w WalletService) WalletService { return staleBalanceWallet{w} }))
		poor := wrapped.newAccount(t, "1")
		_, err := wrapped.orderSvc.CreateOrder(ctx, CreateOrderRequest{
			AccountID:     poor,
			LineItems:     []domain.LineItem{item("10", 1)},
			DeclaredTotal: decimal.NewFromInt(10),
			PaymentMethod: domain.PaymentMethodWallet,
		})
		require.Error(t, err)

		orders, _, err := wrapped.orderSvc.ListOrders(ctx, poor, 1, 0)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		_, err = wrapped.orderSvc.UpdateStatus(ctx, orders[0].ID, poor, domain.OrderStatusCompleted)
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})
}

func TestOrderStatistics(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	accountID := h.newAccount(t, "100")
	proof := h.proof("pay_stats")

	requests := []CreateOrderRequest{
		{LineItems: []domain.LineItem{item("25", 2)}, DeclaredTotal: decimal.NewFromInt(50), PaymentMethod: domain.PaymentMethodWallet},
		{LineItems: []domain.LineItem{item("15", 1)}, DeclaredTotal: decimal.NewFromInt(15), PaymentMethod: domain.PaymentMethodCard},
		{LineItems: []domain.LineItem{item("7.5", 2)}, DeclaredTotal: decimal.NewFromInt(15), PaymentMethod: domain.PaymentMethodGateway, GatewayProof: &proof},
	}
	for _, req := range requests {
		req.AccountID = accountID
		_, err := h.orderSvc.CreateOrder(ctx, req)
		require.NoError(t, err)
	}

	stats, err := h.orderSvc.GetOrderStatistics(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.True(t, decimal.NewFromInt(80).Equal(stats.TotalAmount))
	assert.Equal(t, int64(2), stats.CountsByStatus[domain.OrderStatusCompleted])
	assert.Equal(t, int64(1), stats.CountsByStatus[domain.OrderStatusPending])
	assert.Equal(t, int64(1), stats.CountsByPaymentMethod[domain.PaymentMethodWallet])
	assert.True(t, decimal.NewFromInt(15).Equal(stats.AmountByPaymentMethod[domain.PaymentMethodGateway]))
}

func TestCreateOrderUpstreamFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	accountID := h.newAccount(t, "0")

	verifier := new(MockVerifier)
	verifier.On("Verify", ctx, mock.MatchedBy(func(p gateway.Proof) bool {
		return p.PaymentID == "pay_down" && p.Amount.Equal(decimal.NewFromInt(5))
	})).Return(false, errors.New("503")).Once()
	svc := h.orderSvc.(*orderService)
	svc.verifier = verifier

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{
		AccountID:     accountID,
		LineItems:     []domain.LineItem{item("5", 1)},
		DeclaredTotal: decimal.NewFromInt(5),
		PaymentMethod: domain.PaymentMethodGateway,
		GatewayProof:  &gateway.Proof{PaymentID: "pay_down"},
	})
	assert.ErrorIs(t, err, util.ErrUpstream)
	verifier.AssertExpectations(t)
}
