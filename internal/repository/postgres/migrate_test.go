// internal/repository/postgres/migrate_test.go
package postgres

import (
	"errors"
	"fmt"
	"testing"

	"wallet-ledger/internal/util"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapWriteError(t *testing.T) {
	t.Run("UniqueViolationBecomesConflict", func(t *testing.T) {
		pqErr := &pq.Error{Code: "23505", Constraint: "orders_short_code_key"}
		err := mapWriteError("failed to create order", fmt.Errorf("exec: %w", pqErr))
		assert.ErrorIs(t, err, util.ErrConflict)
		assert.Equal(t, "short_code", util.ConflictField(err))
	})

	t.Run("UnknownConstraintKeepsName", func(t *testing.T) {
		pqErr := &pq.Error{Code: "23505", Constraint: "some_other_key"}
		err := mapWriteError("op", pqErr)
		assert.Equal(t, "some_other_key", util.ConflictField(err))
	})

	t.Run("OtherErrorsPassThrough", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := mapWriteError("op", cause)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, util.ErrConflict)
	})
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS ledger_entries")
	assert.Contains(t, schema, "transactions_gateway_payment_id_uidx")
}
