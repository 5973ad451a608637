// internal/repository/memory/store.go
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/pkg/db"

	"github.com/google/uuid"
)

var (
	errRawSQL            = errors.New("memory store: raw SQL is not supported")
	errNonPositiveAmount = errors.New("memory store: transaction amount must be positive")
)

// Store is an in-process ledger store with the same constraints as the
// PostgreSQL schema: unique gateway payment ids, order numbers and short
// codes, and a balance that never goes negative.
//
// Writes apply immediately under the store mutex. Writes made through a Tx
// record an undo step that Rollback replays, so a rolled back transaction
// leaves no trace.
type Store struct {
	mu  sync.RWMutex
	seq int64

	accounts      map[uuid.UUID]*domain.Account
	entries       map[uuid.UUID]*entryRow
	entryByTxn    map[uuid.UUID]uuid.UUID
	transactions  map[uuid.UUID]*txnRow
	gatewayTxns   map[string]uuid.UUID
	orders        map[uuid.UUID]*orderRow
	orderNumbers  map[string]uuid.UUID
	shortCodes    map[string]uuid.UUID
	gatewayOrders map[string]uuid.UUID
	products      map[uuid.UUID]domain.Product
}

type entryRow struct {
	seq   int64
	entry domain.LedgerEntry
}

type txnRow struct {
	seq int64
	txn domain.Transaction
}

type orderRow struct {
	seq   int64
	order *domain.Order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:      map[uuid.UUID]*domain.Account{},
		entries:       map[uuid.UUID]*entryRow{},
		entryByTxn:    map[uuid.UUID]uuid.UUID{},
		transactions:  map[uuid.UUID]*txnRow{},
		gatewayTxns:   map[string]uuid.UUID{},
		orders:        map[uuid.UUID]*orderRow{},
		orderNumbers:  map[string]uuid.UUID{},
		shortCodes:    map[string]uuid.UUID{},
		gatewayOrders: map[string]uuid.UUID{},
		products:      map[uuid.UUID]domain.Product{},
	}
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: s}, nil
}

// TxFuncs returns transaction hooks for services.
func (s *Store) TxFuncs() db.TxFuncs {
	return db.TxFuncs{
		Begin: func(ctx context.Context) (db.TxController, error) {
			return s.Begin(ctx)
		},
		Commit:   db.CommitTx,
		Rollback: db.RollbackTx,
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// write runs fn under the write lock. When q is a Tx, the returned undo step
// is recorded on it.
func (s *Store) write(q repository.DBExecutor, fn func() (undo func(), err error)) error {
	tx, inTx := q.(*Tx)
	if inTx && tx.store != s {
		return errors.New("memory store: transaction belongs to another store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if inTx && tx.isDone() {
		return sql.ErrTxDone
	}
	undo, err := fn()
	if err != nil {
		return err
	}
	if inTx && undo != nil {
		tx.record(undo)
	}
	return nil
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

func (s *Store) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errRawSQL
}

func (s *Store) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errRawSQL
}

func (s *Store) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errRawSQL
}

func (s *Store) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

// Tx is a memory store transaction. It implements db.TxController and
// repository.DBExecutor.
type Tx struct {
	store *Store

	mu   sync.Mutex
	undo []func()
	done bool
}

func (t *Tx) isDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *Tx) record(undo func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, undo)
}

// Commit keeps every write made through the transaction.
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.undo = nil
	return nil
}

// Rollback reverts every write made through the transaction, newest first.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return sql.ErrTxDone
	}
	t.done = true
	undo := t.undo
	t.undo = nil
	t.mu.Unlock()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	return nil
}

func (t *Tx) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errRawSQL
}

func (t *Tx) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errRawSQL
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errRawSQL
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
