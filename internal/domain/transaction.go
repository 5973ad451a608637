// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType defines the type of a transaction log record.
type TransactionType string

const (
	TransactionTypeWalletCredit   TransactionType = "wallet_credit"
	TransactionTypeWalletDebit    TransactionType = "wallet_debit"
	TransactionTypeGatewayPayment TransactionType = "gateway_payment"
	TransactionTypeOrderPayment   TransactionType = "order_payment"
	TransactionTypeRefund         TransactionType = "refund"
)

// AffectsBalance reports whether records of this type carry a ledger entry.
func (t TransactionType) AffectsBalance() bool {
	switch t {
	case TransactionTypeWalletCredit, TransactionTypeWalletDebit, TransactionTypeGatewayPayment, TransactionTypeRefund:
		return true
	}
	return false
}

// IsCredit reports whether the type adds to the balance.
func (t TransactionType) IsCredit() bool {
	return t.AffectsBalance() && t != TransactionTypeWalletDebit
}

// TransactionStatus defines the status of a transaction log record.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// IsOpen reports whether the record may still transition.
func (s TransactionStatus) IsOpen() bool {
	return s == TransactionStatusPending || s == TransactionStatusProcessing
}

// Transaction is an entry in the transaction log.
type Transaction struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	AccountID        uuid.UUID         `db:"account_id" json:"account_id"`
	Type             TransactionType   `db:"type" json:"type"`
	Amount           decimal.Decimal   `db:"amount" json:"amount"`
	Description      string            `db:"description" json:"description"`
	Status           TransactionStatus `db:"status" json:"status"`
	PaymentMethod    string            `db:"payment_method" json:"payment_method"`
	GatewayPaymentID *string           `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	GatewayOrderID   *string           `db:"gateway_order_id" json:"gateway_order_id,omitempty"`
	GatewaySignature *string           `db:"gateway_signature" json:"-"`
	OrderID          *uuid.UUID        `db:"order_id" json:"order_id,omitempty"`
	ReferenceID      *string           `db:"reference_id" json:"reference_id,omitempty"`
	FailureReason    *string           `db:"failure_reason" json:"failure_reason,omitempty"`
	Metadata         Metadata          `db:"metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// NewTransaction creates a pending Transaction.
func NewTransaction(accountID uuid.UUID, txType TransactionType, amount decimal.Decimal, description, paymentMethod string) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:            uuid.New(),
		AccountID:     accountID,
		Type:          txType,
		Amount:        amount,
		Description:   description,
		Status:        TransactionStatusPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// LedgerKind is the kind of entry this record produces.
func (t *Transaction) LedgerKind() LedgerKind {
	switch t.Type {
	case TransactionTypeWalletDebit:
		return LedgerKindDebit
	case TransactionTypeRefund:
		return LedgerKindRefund
	default:
		return LedgerKindCredit
	}
}

// BalanceDelta is the signed change this record applies to the balance.
func (t *Transaction) BalanceDelta() decimal.Decimal {
	if t.Type == TransactionTypeWalletDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// NewLedgerEntry builds the completed ledger entry for this record.
func (t *Transaction) NewLedgerEntry(at time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:            uuid.New(),
		AccountID:     t.AccountID,
		TransactionID: t.ID,
		Kind:          t.LedgerKind(),
		Amount:        t.Amount,
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
		Status:        LedgerStatusCompleted,
		CreatedAt:     at,
	}
}

// TransactionAggregate is one (type, status) bucket of an account's log.
type TransactionAggregate struct {
	Type   TransactionType   `db:"type"`
	Status TransactionStatus `db:"status"`
	Count  int64             `db:"count"`
	Amount decimal.Decimal   `db:"amount"`
}

// WalletStatistics summarizes an account's wallet activity. Money totals only
// count completed records.
type WalletStatistics struct {
	CurrentBalance     decimal.Decimal             `json:"current_balance"`
	TotalCredited      decimal.Decimal             `json:"total_credited"`
	TotalDebited       decimal.Decimal             `json:"total_debited"`
	TotalGatewayAmount decimal.Decimal             `json:"total_gateway_amount"`
	TotalTransactions  int64                       `json:"total_transactions"`
	CountsByStatus     map[TransactionStatus]int64 `json:"counts_by_status"`
	LedgerEntryCount   int64                       `json:"ledger_entry_count"`
}

// SummarizeTransactions folds aggregates into wallet statistics.
func SummarizeTransactions(aggs []TransactionAggregate) *WalletStatistics {
	stats := &WalletStatistics{
		CurrentBalance:     decimal.Zero,
		TotalCredited:      decimal.Zero,
		TotalDebited:       decimal.Zero,
		TotalGatewayAmount: decimal.Zero,
		CountsByStatus:     map[TransactionStatus]int64{},
	}
	for _, a := range aggs {
		stats.TotalTransactions += a.Count
		stats.CountsByStatus[a.Status] += a.Count
		if a.Status != TransactionStatusCompleted {
			continue
		}
		switch {
		case a.Type == TransactionTypeWalletDebit:
			stats.TotalDebited = stats.TotalDebited.Add(a.Amount)
		case a.Type.IsCredit():
			stats.TotalCredited = stats.TotalCredited.Add(a.Amount)
		}
		if a.Type == TransactionTypeGatewayPayment {
			stats.TotalGatewayAmount = stats.TotalGatewayAmount.Add(a.Amount)
		}
	}
	return stats
}
