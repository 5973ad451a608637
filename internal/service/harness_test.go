// internal/service/harness_test.go
package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"wallet-ledger/internal/catalog"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/idgen"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const gatewaySecret = "gw-test-secret"

// harness wires the services to a memory store.
type harness struct {
	store    *memory.Store
	accounts *flakyAccounts
	txns     repository.TransactionRepository
	orders   repository.OrderRepository
	products repository.ProductRepository
	verifier *gateway.HMACVerifier
	wallet   WalletService
	orderSvc OrderService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	idOpts      []idgen.Option
	withCatalog bool
	wallet      func(WalletService) WalletService
	orders      func(repository.OrderRepository) repository.OrderRepository
}

func withIDOptions(opts ...idgen.Option) harnessOption {
	return func(c *harnessConfig) { c.idOpts = append(c.idOpts, opts...) }
}

func withCatalog() harnessOption {
	return func(c *harnessConfig) { c.withCatalog = true }
}

// withWalletWrapper lets a test change how the order service sees the wallet.
func withWalletWrapper(wrap func(WalletService) WalletService) harnessOption {
	return func(c *harnessConfig) { c.wallet = wrap }
}

// withOrderWrapper lets a test observe the order service's repository calls.
func withOrderWrapper(wrap func(repository.OrderRepository) repository.OrderRepository) harnessOption {
	return func(c *harnessConfig) { c.orders = wrap }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	var cfg harnessConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.NewStore()
	h := &harness{
		store:    store,
		accounts: &flakyAccounts{AccountRepository: memory.NewAccountRepository(store)},
		txns:     memory.NewTransactionRepository(store),
		orders:   memory.NewOrderRepository(store),
		products: memory.NewProductRepository(store),
		verifier: gateway.NewHMACVerifier(gatewaySecret),
	}
	h.wallet = NewWalletService(store, h.accounts, h.txns, store.TxFuncs(), h.verifier, quietLog)

	orderWallet := h.wallet
	if cfg.wallet != nil {
		orderWallet = cfg.wallet(h.wallet)
	}
	var cat catalog.Catalog
	if cfg.withCatalog {
		cat = catalog.NewRepositoryCatalog(h.products, store)
	}
	orderRepo := h.orders
	if cfg.orders != nil {
		orderRepo = cfg.orders(h.orders)
	}
	ids := idgen.New(NewOrderIDSource(h.orders, store), quietLog, cfg.idOpts...)
	h.orderSvc = NewOrderService(store, orderRepo, h.txns, orderWallet, ids, h.verifier, cat, store.TxFuncs(), quietLog)
	return h
}

// newAccount opens an account and funds it with a plain credit.
func (h *harness) newAccount(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	accountID := uuid.New()
	_, err := h.wallet.EnsureAccount(ctx, accountID)
	require.NoError(t, err)
	if amount := decimal.RequireFromString(balance); amount.IsPositive() {
		_, err = h.wallet.Credit(ctx, CreditRequest{AccountID: accountID, Amount: amount, Description: "opening balance", PaymentMethod: "card"})
		require.NoError(t, err)
	}
	return accountID
}

func (h *harness) proof(paymentID string) gateway.Proof {
	orderID := "order_" + paymentID
	return gateway.Proof{PaymentID: paymentID, OrderID: orderID, Signature: h.verifier.Sign(orderID, paymentID)}
}

func (h *harness) balance(t *testing.T, accountID uuid.UUID) decimal.Decimal {
	t.Helper()
	balance, err := h.wallet.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return balance
}

// requireLedgerMatchesBalance checks that the balance equals the signed sum
// of completed ledger entries.
func (h *harness) requireLedgerMatchesBalance(t *testing.T, accountID uuid.UUID) {
	t.Helper()
	entries, _, err := h.accounts.ListLedgerEntries(context.Background(), h.store, accountID, 100000, 0)
	require.NoError(t, err)
	balance := h.balance(t, accountID)
	require.True(t, domain.BalanceOf(entries).Equal(balance), "ledger sum %s != balance %s", domain.BalanceOf(entries), balance)
	require.False(t, balance.IsNegative())
}

func (h *harness) transaction(t *testing.T, id uuid.UUID) *domain.Transaction {
	t.Helper()
	txn, err := h.txns.GetTransactionByID(context.Background(), h.store, id)
	require.NoError(t, err)
	return txn
}

// flakyAccounts fails the next ledger insert on demand, which is how a
// partial commit shows up.
type flakyAccounts struct {
	repository.AccountRepository
	failNextInsert atomic.Bool
}

func (f *flakyAccounts) InsertLedgerEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	if f.failNextInsert.CompareAndSwap(true, false) {
		return errors.New("connection reset by peer")
	}
	return f.AccountRepository.InsertLedgerEntry(ctx, q, entry)
}

// staleBalanceWallet reports a balance that covers anything, so the order
// service's pre-check passes and the debit itself has to refuse.
type staleBalanceWallet struct {
	WalletService
}

func (w staleBalanceWallet) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return decimal.NewFromInt(1_000_000), nil
}

// txCheckingOrders records whether every order insert ran inside a store
// transaction.
type txCheckingOrders struct {
	repository.OrderRepository
	inserts    atomic.Int32
	outsideTxn atomic.Int32
}

func (o *txCheckingOrders) CreateOrder(ctx context.Context, q repository.DBExecutor, order *domain.Order) error {
	o.inserts.Add(1)
	if _, ok := q.(*memory.Tx); !ok {
		o.outsideTxn.Add(1)
	}
	return o.OrderRepository.CreateOrder(ctx, q, order)
}

func item(price string, qty int) domain.LineItem {
	return domain.LineItem{ProductID: uuid.New(), Name: "item", Price: decimal.RequireFromString(price), Quantity: qty}
}
