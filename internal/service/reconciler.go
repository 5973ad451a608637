// internal/service/reconciler.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
)

const defaultReconcileBatch = 100

// ReconcileReport counts what one sweep did.
type ReconcileReport struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

// Reconciler settles transaction records left pending by partial commits.
type Reconciler struct {
	wallet          WalletService
	transactionRepo repository.TransactionRepository
	dbExecutor      repository.DBExecutor
	after           time.Duration
	batch           int
	now             func() time.Time
	logger          *slog.Logger
}

// NewReconciler creates a Reconciler that only touches records older than after.
func NewReconciler(wallet WalletService, transactionRepo repository.TransactionRepository, dbExecutor repository.DBExecutor, after time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		wallet:          wallet,
		transactionRepo: transactionRepo,
		dbExecutor:      dbExecutor,
		after:           after,
		batch:           defaultReconcileBatch,
		now:             time.Now,
		logger:          logger,
	}
}

// Sweep settles one batch of stale pending records.
func (r *Reconciler) Sweep(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	cutoff := r.now().UTC().Add(-r.after)
	stale, err := r.transactionRepo.ListStalePending(ctx, r.dbExecutor, cutoff, r.batch)
	if err != nil {
		return report, fmt.Errorf("reconcile: failed to list pending transactions: %w", err)
	}

	for _, txn := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		status, err := r.wallet.SettlePending(ctx, txn.ID)
		if err != nil {
			report.Errors++
			r.logger.Error("Failed to settle pending transaction", "transaction_id", txn.ID, "error", err)
			continue
		}
		switch status {
		case domain.TransactionStatusCompleted:
			report.Completed++
		case domain.TransactionStatusFailed:
			report.Failed++
		}
		r.logger.Info("Settled pending transaction", "transaction_id", txn.ID, "account_id", txn.AccountID, "status", status)
	}
	return report, nil
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Sweep(ctx)
			if err != nil {
				r.logger.Error("Reconcile sweep failed", "error", err)
				continue
			}
			if report.Scanned > 0 {
				r.logger.Info("Reconcile sweep finished", "scanned", report.Scanned, "completed", report.Completed, "failed", report.Failed, "errors", report.Errors)
			}
		}
	}
}
