// internal/service/order_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallet-ledger/internal/catalog"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/idgen"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxIdentifierAttempts bounds inserts retried after an order number or
// short code collision.
const maxIdentifierAttempts = 5

// CreateOrderRequest carries a checkout.
type CreateOrderRequest struct {
	AccountID       uuid.UUID
	LineItems       []domain.LineItem
	DeclaredTotal   decimal.Decimal
	PaymentMethod   domain.PaymentMethod
	ShippingAddress domain.ShippingAddress
	// GatewayProof is required for gateway orders and ignored otherwise.
	GatewayProof *gateway.Proof
	Notes        string
	Metadata     domain.Metadata
}

// OrderService defines the interface for order-related business logic.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID, accountID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Order, int64, error)
	GetOrderStatistics(ctx context.Context, accountID uuid.UUID) (*domain.OrderStatistics, error)
	UpdateStatus(ctx context.Context, orderID, accountID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

// orderService implements the OrderService interface.
type orderService struct {
	dbExecutor      repository.DBExecutor
	orderRepo       repository.OrderRepository
	transactionRepo repository.TransactionRepository
	wallet          WalletService
	ids             *idgen.Generator
	verifier        gateway.Verifier
	catalog         catalog.Catalog
	tx              db.TxFuncs
	logger          *slog.Logger
}

// NewOrderService creates a new instance of OrderService. A nil catalog keeps
// the name, price, image and category sent by the client.
func NewOrderService(
	dbExecutor repository.DBExecutor,
	orderRepo repository.OrderRepository,
	transactionRepo repository.TransactionRepository,
	wallet WalletService,
	ids *idgen.Generator,
	verifier gateway.Verifier,
	cat catalog.Catalog,
	tx db.TxFuncs,
	logger *slog.Logger,
) OrderService {
	return &orderService{
		dbExecutor:      dbExecutor,
		orderRepo:       orderRepo,
		transactionRepo: transactionRepo,
		wallet:          wallet,
		ids:             ids,
		verifier:        verifier,
		catalog:         cat,
		tx:              tx,
		logger:          logger,
	}
}

// CreateOrder validates a checkout, persists the order and settles it
// according to its payment method.
func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items, err := s.snapshotItems(ctx, req.LineItems)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	order := domain.NewOrder(req.AccountID, items, req.PaymentMethod)
	if !domain.WithinTolerance(order.TotalAmount, req.DeclaredTotal) {
		mismatch := util.Validation("amount mismatch")
		mismatch.Details = map[string]any{
			"computed": order.TotalAmount,
			"declared": req.DeclaredTotal,
		}
		return nil, fmt.Errorf("create order: %w", mismatch)
	}
	order.ShippingAddress = req.ShippingAddress
	order.Notes = req.Notes
	order.Metadata = req.Metadata

	switch order.PaymentMethod {
	case domain.PaymentMethodGateway:
		err = s.createGatewayOrder(ctx, order, *req.GatewayProof)
	case domain.PaymentMethodWallet:
		err = s.createWalletOrder(ctx, order)
	default:
		err = s.insertOrder(ctx, order, s.persistOrder)
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// createGatewayOrder stores a paid gateway order as completed together with
// its payment record.
func (s *orderService) createGatewayOrder(ctx context.Context, order *domain.Order, proof gateway.Proof) error {
	if !order.TotalAmount.IsPositive() {
		return util.Validation("gateway orders must have a positive total")
	}
	proof.Amount = order.TotalAmount
	if err := verifyPayment(ctx, s.verifier, proof); err != nil {
		return err
	}

	order.GatewayPaymentID = optional(proof.PaymentID)
	order.GatewayOrderID = optional(proof.OrderID)
	order.GatewaySignature = optional(proof.Signature)
	order.Status = domain.OrderStatusCompleted

	return s.insertOrder(ctx, order, s.persistGatewayOrder)
}

func (s *orderService) persistGatewayOrder(ctx context.Context, order *domain.Order) error {
	return s.inTx(ctx, func(q repository.DBExecutor) error {
		if err := s.orderRepo.CreateOrder(ctx, q, order); err != nil {
			return err
		}

		payment := domain.NewTransaction(order.AccountID, domain.TransactionTypeOrderPayment, order.TotalAmount,
			"Payment for order "+order.OrderNumber, string(domain.PaymentMethodGateway))
		payment.Status = domain.TransactionStatusCompleted
		payment.GatewayPaymentID = order.GatewayPaymentID
		payment.GatewayOrderID = order.GatewayOrderID
		payment.GatewaySignature = order.GatewaySignature
		payment.OrderID = &order.ID
		payment.ReferenceID = optional(orderReference(order))
		if err := s.transactionRepo.CreateTransaction(ctx, q, payment); err != nil {
			return fmt.Errorf("failed to record order payment: %w", err)
		}
		return nil
	})
}

// persistOrder writes the order row and its line items together.
func (s *orderService) persistOrder(ctx context.Context, order *domain.Order) error {
	return s.inTx(ctx, func(q repository.DBExecutor) error {
		return s.orderRepo.CreateOrder(ctx, q, order)
	})
}

// createWalletOrder inserts the order as pending, debits the wallet and then
// completes the order. A failed debit leaves the order failed.
func (s *orderService) createWalletOrder(ctx context.Context, order *domain.Order) error {
	if !order.TotalAmount.IsPositive() {
		return util.Validation("wallet orders must have a positive total")
	}
	balance, err := s.wallet.GetBalance(ctx, order.AccountID)
	if err != nil {
		return err
	}
	if balance.LessThan(order.TotalAmount) {
		return util.InsufficientFunds(order.TotalAmount, balance)
	}

	if err := s.insertOrder(ctx, order, s.persistOrder); err != nil {
		return err
	}

	entry, err := s.wallet.Debit(ctx, DebitRequest{
		AccountID:     order.AccountID,
		Amount:        order.TotalAmount,
		Description:   "Payment for order " + order.OrderNumber,
		PaymentMethod: string(domain.PaymentMethodWallet),
		OrderID:       &order.ID,
		ReferenceID:   orderReference(order),
	})
	if err != nil {
		if uerr := s.orderRepo.UpdateOrderStatus(ctx, s.dbExecutor, order.ID, domain.OrderStatusPending, domain.OrderStatusFailed); uerr != nil {
			s.logger.Error("Failed to mark order as failed", "order_id", order.ID, "error", uerr)
		} else {
			order.Status = domain.OrderStatusFailed
		}
		return fmt.Errorf("wallet payment for order %s failed: %w", order.OrderNumber, err)
	}

	if err := s.completeWalletOrder(ctx, order.ID, entry.TransactionID); err != nil {
		s.logger.Error("Order debited but not completed", "order_id", order.ID, "transaction_id", entry.TransactionID, "error", err)
		return util.PartialCommit(entry.TransactionID, err)
	}
	order.WalletTransactionID = &entry.TransactionID
	order.Status = domain.OrderStatusCompleted
	return nil
}

func (s *orderService) completeWalletOrder(ctx context.Context, orderID, transactionID uuid.UUID) error {
	return s.inTx(ctx, func(q repository.DBExecutor) error {
		if err := s.orderRepo.SetWalletTransaction(ctx, q, orderID, transactionID); err != nil {
			return fmt.Errorf("failed to link wallet transaction: %w", err)
		}
		if err := s.orderRepo.UpdateOrderStatus(ctx, q, orderID, domain.OrderStatusPending, domain.OrderStatusCompleted); err != nil {
			return fmt.Errorf("failed to complete order: %w", err)
		}
		return nil
	})
}

// inTx runs fn in a store transaction and commits when it succeeds.
func (s *orderService) inTx(ctx context.Context, fn func(q repository.DBExecutor) error) error {
	txController, err := s.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.tx.Rollback(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("transaction controller does not implement DBExecutor")
	}

	if err := fn(txExecutor); err != nil {
		return err
	}
	if err := s.tx.Commit(txController); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertOrder assigns identifiers and runs persist, drawing fresh identifiers
// when persist reports an order number or short code collision.
func (s *orderService) insertOrder(ctx context.Context, order *domain.Order, persist func(context.Context, *domain.Order) error) error {
	number, err := s.ids.GenerateOrderNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate order number: %w", err)
	}
	code, err := s.ids.GenerateShortCode(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate short code: %w", err)
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber, order.ShortCode = number, code
		err := persist(ctx, order)
		if err == nil {
			return nil
		}

		field := util.ConflictField(err)
		if attempt >= maxIdentifierAttempts || (field != "order_number" && field != "short_code") {
			return err
		}
		s.logger.Warn("Order identifier collision, retrying", "field", field, "attempt", attempt)

		if field == "order_number" {
			number = s.ids.FallbackOrderNumber()
			continue
		}
		if code, err = s.ids.GenerateShortCode(ctx); err != nil {
			return fmt.Errorf("failed to generate short code: %w", err)
		}
	}
}

// snapshotItems copies name, price, image and category from the catalog.
func (s *orderService) snapshotItems(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, len(items))
	if s.catalog == nil {
		copy(out, items)
		return out, nil
	}

	for i, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				return nil, util.Validation("product %s does not exist", item.ProductID)
			}
			return nil, util.Upstream("product catalog", err)
		}
		out[i] = domain.LineItem{
			ProductID: item.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Image:     product.Image,
			Category:  product.Category,
		}
	}
	return out, nil
}

// GetOrder returns an order owned by accountID.
func (s *orderService) GetOrder(ctx context.Context, orderID, accountID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, s.dbExecutor, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.AccountID != accountID {
		return nil, fmt.Errorf("get order: %w", util.NotFound("order"))
	}
	return order, nil
}

// ListOrders retrieves a page of the account's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	limit, offset = normalizePage(limit, offset)
	orders, total, err := s.orderRepo.ListOrdersByAccount(ctx, s.dbExecutor, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrderStatistics summarizes the account's orders by status and method.
func (s *orderService) GetOrderStatistics(ctx context.Context, accountID uuid.UUID) (*domain.OrderStatistics, error) {
	aggs, err := s.orderRepo.AggregateByAccount(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("order statistics: %w", err)
	}
	return domain.SummarizeOrders(aggs), nil
}

// UpdateStatus moves an order along the lifecycle without payment side effects.
func (s *orderService) UpdateStatus(ctx context.Context, orderID, accountID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID, accountID)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := order.CheckTransition(status); err != nil {
		return nil, fmt.Errorf("update order status: %w", util.Validation("%v", err))
	}
	if err := s.orderRepo.UpdateOrderStatus(ctx, s.dbExecutor, order.ID, order.Status, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	updated, err := s.orderRepo.GetOrderByID(ctx, s.dbExecutor, order.ID)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

func validateOrderRequest(req CreateOrderRequest) error {
	if len(req.LineItems) == 0 {
		return util.Validation("order must contain at least one item")
	}
	for i, item := range req.LineItems {
		if item.Quantity < 1 {
			return util.Validation("item %d: quantity must be at least 1", i+1)
		}
		if item.Price.IsNegative() {
			return util.Validation("item %d: price must not be negative", i+1)
		}
		if !item.Price.Equal(item.Price.Round(2)) {
			return util.Validation("item %d: price must have at most two decimal places", i+1)
		}
	}
	if !req.PaymentMethod.Valid() {
		return util.Validation("unsupported payment method %q", req.PaymentMethod)
	}
	if req.PaymentMethod == domain.PaymentMethodGateway && (req.GatewayProof == nil || req.GatewayProof.PaymentID == "") {
		return util.Validation("gateway orders require a payment proof")
	}
	return nil
}

func orderReference(order *domain.Order) string {
	return "order_" + order.OrderNumber
}

// orderIDSource answers the identifier generator's questions from the order table.
type orderIDSource struct {
	repo repository.OrderRepository
	q    repository.DBExecutor
}

// NewOrderIDSource adapts an order repository to idgen.Source.
func NewOrderIDSource(repo repository.OrderRepository, q repository.DBExecutor) idgen.Source {
	return &orderIDSource{repo: repo, q: q}
}

func (s *orderIDSource) CountOrders(ctx context.Context) (int64, error) {
	return s.repo.CountOrders(ctx, s.q)
}

func (s *orderIDSource) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	return s.repo.ShortCodeExists(ctx, s.q, code)
}
