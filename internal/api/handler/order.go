// internal/api/handler/order.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/service"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	responder
	service service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		responder: responder{logger: logger},
		service:   svc,
	}
}

// LineItemRequest is one product line of a checkout.
type LineItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"max=255"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	Image     string          `json:"image" validate:"max=512"`
	Category  string          `json:"category" validate:"max=100"`
}

// CreateOrderRequest represents the request body for a checkout.
type CreateOrderRequest struct {
	LineItems       []LineItemRequest      `json:"line_items" validate:"required,min=1,dive"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	PaymentMethod   string                 `json:"payment_method" validate:"required"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	GatewayPayment  *gateway.Proof         `json:"gateway_payment"`
	Notes           string                 `json:"notes" validate:"max=1000"`
	Metadata        domain.Metadata        `json:"metadata"`
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateOrder handles a checkout.
// POST /orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	items := make([]domain.LineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, domain.LineItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			Price:     li.Price,
			Quantity:  li.Quantity,
			Image:     li.Image,
			Category:  li.Category,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), service.CreateOrderRequest{
		AccountID:       accountID,
		LineItems:       items,
		DeclaredTotal:   req.TotalAmount,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		ShippingAddress: req.ShippingAddress,
		GatewayProof:    req.GatewayPayment,
		Notes:           req.Notes,
		Metadata:        req.Metadata,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, order)
}

// ListOrders handles the order history request.
// GET /orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	limit, offset := pagination(r)

	orders, total, err := h.service.ListOrders(r.Context(), accountID, limit, offset)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, paginated(orders, limit, offset, total))
}

// GetOrderStatistics handles the order summary request.
// GET /orders/stats
func (h *OrderHandler) GetOrderStatistics(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	stats, err := h.service.GetOrderStatistics(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, stats)
}

// GetOrder handles a single order lookup.
// GET /orders/{orderID}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	orderID, err := pathUUID(chi.URLParam(r, "orderID"), "order id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID, accountID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus moves an order through its lifecycle.
// PUT /orders/{orderID}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	orderID, err := pathUUID(chi.URLParam(r, "orderID"), "order id")
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req UpdateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, accountID, domain.OrderStatus(req.Status))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}
