// internal/repository/postgres/migrate.go
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

//go:embed migrations/schema.sql
var schema string

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, q repository.DBExecutor) error {
	if _, err := q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

var constraintFields = map[string]string{
	"accounts_pkey":                        "id",
	"transactions_pkey":                    "id",
	"transactions_gateway_payment_id_uidx": "gateway_payment_id",
	"ledger_entries_transaction_uidx":      "transaction_id",
	"orders_pkey":                          "id",
	"orders_order_number_key":              "order_number",
	"orders_short_code_key":                "short_code",
	"orders_gateway_payment_id_uidx":       "gateway_payment_id",
}

// mapWriteError turns unique violations into conflict errors naming the field.
func mapWriteError(op string, err error) error {
	if constraint, ok := db.UniqueViolation(err); ok {
		field, known := constraintFields[constraint]
		if !known {
			field = constraint
		}
		return fmt.Errorf("%s: %w", op, util.Conflict(field))
	}
	return fmt.Errorf("%s: %w", op, err)
}
