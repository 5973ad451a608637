// internal/domain/account.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a wallet holder. Balance always equals the sum of its completed
// credit and refund entries minus its completed debit entries.
type Account struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`

	Entries []LedgerEntry `db:"-" json:"entries,omitempty"`
}

// NewAccount creates an active account with a zero balance.
func NewAccount(id uuid.UUID) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:        id,
		Balance:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LedgerKind is the direction of a ledger entry.
type LedgerKind string

const (
	LedgerKindCredit LedgerKind = "credit"
	LedgerKindDebit  LedgerKind = "debit"
	LedgerKindRefund LedgerKind = "refund"
)

// LedgerStatus mirrors the wallet entry statuses. Entries are written in
// their final state and never change afterwards.
type LedgerStatus string

const (
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusFailed    LedgerStatus = "failed"
	LedgerStatusCancelled LedgerStatus = "cancelled"
)

// LedgerEntry is one immutable line of an account's wallet history.
type LedgerEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	AccountID     uuid.UUID       `db:"account_id" json:"account_id"`
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	Kind          LedgerKind      `db:"kind" json:"kind"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Description   string          `db:"description" json:"description"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Status        LedgerStatus    `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// SignedAmount is the entry's effect on the balance.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Kind == LedgerKindDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// BalanceOf folds completed entries into a balance.
func BalanceOf(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Status == LedgerStatusCompleted {
			total = total.Add(e.SignedAmount())
		}
	}
	return total
}
