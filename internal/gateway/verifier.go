// internal/gateway/verifier.go
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Proof is what a client presents after paying at the gateway.
type Proof struct {
	PaymentID string          `json:"payment_id" validate:"required"`
	OrderID   string          `json:"order_id,omitempty"`
	Signature string          `json:"signature,omitempty"`
	Amount    decimal.Decimal `json:"-"`
}

// Verifier checks a payment proof with the gateway. A false result with a
// nil error means the proof was examined and rejected; an error means the
// gateway could not be consulted.
type Verifier interface {
	Verify(ctx context.Context, proof Proof) (bool, error)
}
