// internal/gateway/stripe.go
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// intentGetter is the slice of the Stripe PaymentIntents client we use.
type intentGetter interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeVerifier treats the proof's payment id as a PaymentIntent id and
// accepts it once the intent has succeeded.
type StripeVerifier struct {
	intents intentGetter
}

// NewStripeVerifier creates a verifier using the given secret key.
func NewStripeVerifier(secretKey string) *StripeVerifier {
	sc := client.New(secretKey, nil)
	return &StripeVerifier{intents: sc.PaymentIntents}
}

// Verify fetches the intent. A missing intent is a rejection, not an error.
// When the proof carries an amount it must match the captured amount.
func (v *StripeVerifier) Verify(ctx context.Context, proof Proof) (bool, error) {
	if proof.PaymentID == "" {
		return false, nil
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := v.intents.Get(proof.PaymentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return false, nil
		}
		return false, fmt.Errorf("stripe: failed to fetch payment intent %s: %w", proof.PaymentID, err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return false, nil
	}
	if !proof.Amount.IsZero() && minorUnits(proof.Amount) != intent.AmountReceived {
		return false, nil
	}
	return true, nil
}

// minorUnits converts an amount to the gateway's smallest currency unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}
