// internal/repository/memory/transaction.go
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

// TransactionRepository implements repository.TransactionRepository on a Store.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) repository.TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	if !transaction.Amount.IsPositive() {
		return errNonPositiveAmount
	}
	s := r.store
	return s.write(q, func() (func(), error) {
		if _, exists := s.transactions[transaction.ID]; exists {
			return nil, util.Conflict("id")
		}
		paymentID := transaction.GatewayPaymentID
		if paymentID != nil {
			if _, taken := s.gatewayTxns[*paymentID]; taken {
				return nil, util.Conflict("gateway_payment_id")
			}
			s.gatewayTxns[*paymentID] = transaction.ID
		}
		stored := *transaction
		stored.Metadata = transaction.Metadata.Clone()
		s.transactions[transaction.ID] = &txnRow{seq: s.nextSeq(), txn: stored}
		return func() {
			delete(s.transactions, transaction.ID)
			if paymentID != nil {
				delete(s.gatewayTxns, *paymentID)
			}
		}, nil
	})
}

func (r *TransactionRepository) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	r.store.read(func() {
		if row, ok := r.store.transactions[id]; ok {
			t := row.txn
			out = &t
		}
	})
	if out == nil {
		return nil, util.NotFound("transaction")
	}
	return out, nil
}

func (r *TransactionRepository) GetTransactionByGatewayPaymentID(ctx context.Context, q repository.DBExecutor, paymentID string) (*domain.Transaction, error) {
	var out *domain.Transaction
	r.store.read(func() {
		if id, ok := r.store.gatewayTxns[paymentID]; ok {
			t := r.store.transactions[id].txn
			out = &t
		}
	})
	if out == nil {
		return nil, util.NotFound("transaction")
	}
	return out, nil
}

func (r *TransactionRepository) FinalizeTransaction(ctx context.Context, q repository.DBExecutor, id uuid.UUID, status domain.TransactionStatus, failureReason *string) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		row, ok := s.transactions[id]
		if !ok || !row.txn.Status.IsOpen() {
			return nil, fmt.Errorf("transaction %s is not open: %w", id, util.ErrConflict)
		}
		prevStatus, prevReason, prevUpdated := row.txn.Status, row.txn.FailureReason, row.txn.UpdatedAt
		row.txn.Status = status
		row.txn.FailureReason = failureReason
		row.txn.UpdatedAt = time.Now().UTC()
		return func() {
			row.txn.Status = prevStatus
			row.txn.FailureReason = prevReason
			row.txn.UpdatedAt = prevUpdated
		}, nil
	})
}

func (r *TransactionRepository) ListTransactionsByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	rows := r.collect(func(t *domain.Transaction) bool { return t.AccountID == accountID })
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	page := paginate(rows, limit, offset)
	out := make([]domain.Transaction, 0, len(page))
	for _, row := range page {
		out = append(out, row.txn)
	}
	return out, int64(len(rows)), nil
}

func (r *TransactionRepository) ListStalePending(ctx context.Context, q repository.DBExecutor, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	rows := r.collect(func(t *domain.Transaction) bool {
		return t.Status == domain.TransactionStatusPending && t.Type.AffectsBalance() && t.CreatedAt.Before(cutoff)
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	page := paginate(rows, limit, 0)
	out := make([]domain.Transaction, 0, len(page))
	for _, row := range page {
		out = append(out, row.txn)
	}
	return out, nil
}

func (r *TransactionRepository) AggregateByAccount(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID) ([]domain.TransactionAggregate, error) {
	type bucket struct {
		t domain.TransactionType
		s domain.TransactionStatus
	}
	sums := map[bucket]*domain.TransactionAggregate{}
	var order []bucket
	for _, row := range r.collect(func(t *domain.Transaction) bool { return t.AccountID == accountID }) {
		k := bucket{row.txn.Type, row.txn.Status}
		agg, ok := sums[k]
		if !ok {
			agg = &domain.TransactionAggregate{Type: k.t, Status: k.s, Amount: decimal.Zero}
			sums[k] = agg
			order = append(order, k)
		}
		agg.Count++
		agg.Amount = agg.Amount.Add(row.txn.Amount)
	}
	out := make([]domain.TransactionAggregate, 0, len(order))
	for _, k := range order {
		out = append(out, *sums[k])
	}
	return out, nil
}

// collect copies matching rows under the read lock.
func (r *TransactionRepository) collect(match func(*domain.Transaction) bool) []txnRow {
	var rows []txnRow
	r.store.read(func() {
		for _, row := range r.store.transactions {
			if match(&row.txn) {
				rows = append(rows, *row)
			}
		}
	})
	return rows
}
