// internal/repository/memory/account.go
package memory

import (
	"context"
	"sort"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository implements repository.AccountRepository on a Store.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) repository.AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		if _, exists := s.accounts[account.ID]; exists {
			return nil, util.Conflict("id")
		}
		stored := *account
		stored.Entries = nil
		s.accounts[account.ID] = &stored
		return func() { delete(s.accounts, account.ID) }, nil
	})
}

func (r *AccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Account, error) {
	var out *domain.Account
	r.store.read(func() {
		if a, ok := r.store.accounts[id]; ok {
			c := *a
			out = &c
		}
	})
	if out == nil {
		return nil, util.NotFound("account")
	}
	return out, nil
}

func (r *AccountRepository) ApplyBalanceDelta(ctx context.Context, q repository.DBExecutor, id uuid.UUID, delta decimal.Decimal) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		a, ok := s.accounts[id]
		if !ok || a.Balance.Add(delta).IsNegative() {
			return nil, util.ErrInsufficientFunds
		}
		a.Balance = a.Balance.Add(delta)
		a.UpdatedAt = time.Now().UTC()
		return func() { a.Balance = a.Balance.Sub(delta) }, nil
	})
}

func (r *AccountRepository) InsertLedgerEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		if _, exists := s.entries[entry.ID]; exists {
			return nil, util.Conflict("id")
		}
		if _, exists := s.entryByTxn[entry.TransactionID]; exists {
			return nil, util.Conflict("transaction_id")
		}
		if _, ok := s.accounts[entry.AccountID]; !ok {
			return nil, util.NotFound("account")
		}
		s.entries[entry.ID] = &entryRow{seq: s.nextSeq(), entry: *entry}
		s.entryByTxn[entry.TransactionID] = entry.ID
		return func() {
			delete(s.entries, entry.ID)
			delete(s.entryByTxn, entry.TransactionID)
		}, nil
	})
}

func (r *AccountRepository) GetLedgerEntryByTransactionID(ctx context.Context, q repository.DBExecutor, transactionID uuid.UUID) (*domain.LedgerEntry, error) {
	var out *domain.LedgerEntry
	r.store.read(func() {
		if id, ok := r.store.entryByTxn[transactionID]; ok {
			e := r.store.entries[id].entry
			out = &e
		}
	})
	if out == nil {
		return nil, util.NotFound("ledger entry")
	}
	return out, nil
}

func (r *AccountRepository) ListLedgerEntries(ctx context.Context, q repository.DBExecutor, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	var rows []*entryRow
	r.store.read(func() {
		for _, row := range r.store.entries {
			if row.entry.AccountID == accountID {
				rows = append(rows, row)
			}
		}
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	page := paginate(rows, limit, offset)
	entries := make([]domain.LedgerEntry, 0, len(page))
	for _, row := range page {
		entries = append(entries, row.entry)
	}
	return entries, int64(len(rows)), nil
}
