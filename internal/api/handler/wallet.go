// internal/api/handler/wallet.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/service"
)

// WalletHandler handles HTTP requests related to wallet operations.
type WalletHandler struct {
	responder
	service service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		responder: responder{logger: logger},
		service:   svc,
	}
}

// CreditRequest represents the request body for a direct wallet credit.
// AccountID names the wallet to credit and defaults to the caller's.
type CreditRequest struct {
	AccountID           *uuid.UUID      `json:"account_id"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description" validate:"max=255"`
	PaymentMethod       string          `json:"payment_method" validate:"max=50"`
	ExternalReferenceID string          `json:"external_reference_id" validate:"max=255"`
	Metadata            domain.Metadata `json:"metadata"`
}

// TopUpRequest represents the request body for a gateway-verified top-up.
type TopUpRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method" validate:"max=50"`
	PaymentID      string          `json:"payment_id" validate:"required,max=255"`
	GatewayOrderID string          `json:"gateway_order_id" validate:"max=255"`
	Signature      string          `json:"signature" validate:"max=512"`
}

// DebitRequest represents the request body for a wallet debit.
type DebitRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	ReferenceID string          `json:"reference_id" validate:"max=255"`
	Metadata    domain.Metadata `json:"metadata"`
}

// GetBalance handles the get wallet balance request.
// GET /wallet/balance
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.BalanceResponse{AccountID: accountID, Balance: balance})
}

// CreditWallet handles a direct credit without a gateway payment. The route
// is restricted to operators.
// POST /wallet/credit
func (h *WalletHandler) CreditWallet(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req CreditRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	if req.AccountID != nil {
		accountID = *req.AccountID
	}

	entry, err := h.service.Credit(r.Context(), service.CreditRequest{
		AccountID:           accountID,
		Amount:              req.Amount,
		Description:         req.Description,
		PaymentMethod:       req.PaymentMethod,
		ExternalReferenceID: req.ExternalReferenceID,
		Metadata:            req.Metadata,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, entry)
}

// TopUp credits the wallet with a payment verified at the gateway.
// POST /wallet/topup
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req TopUpRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	entry, err := h.service.TopUpFromGateway(r.Context(), service.TopUpRequest{
		AccountID:     accountID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Proof: gateway.Proof{
			PaymentID: req.PaymentID,
			OrderID:   req.GatewayOrderID,
			Signature: req.Signature,
		},
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, entry)
}

// DebitWallet handles a standalone debit.
// POST /wallet/debit
func (h *WalletHandler) DebitWallet(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req DebitRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	entry, err := h.service.Debit(r.Context(), service.DebitRequest{
		AccountID:   accountID,
		Amount:      req.Amount,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, entry)
}

// ListTransactions handles the transaction history request.
// GET /wallet/transactions
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	limit, offset := pagination(r)

	txns, total, err := h.service.ListTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, paginated(txns, limit, offset, total))
}

// ListLedgerEntries handles the ledger history request.
// GET /wallet/ledger
func (h *WalletHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	limit, offset := pagination(r)

	entries, total, err := h.service.ListLedgerEntries(r.Context(), accountID, limit, offset)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, paginated(entries, limit, offset, total))
}

// GetWalletStatistics handles the wallet summary request.
// GET /wallet/stats
func (h *WalletHandler) GetWalletStatistics(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	stats, err := h.service.GetStatistics(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, stats)
}
