// internal/gateway/hmac.go
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACVerifier checks Razorpay-style signatures: hex(HMAC-SHA256(secret,
// orderId + "|" + paymentId)).
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier for the given key secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Sign computes the signature the gateway would attach to a payment.
func (v *HMACVerifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the presented signature in constant time.
func (v *HMACVerifier) Verify(ctx context.Context, proof Proof) (bool, error) {
	if proof.PaymentID == "" || proof.OrderID == "" || proof.Signature == "" {
		return false, nil
	}
	expected := v.Sign(proof.OrderID, proof.PaymentID)
	return hmac.Equal([]byte(expected), []byte(proof.Signature)), nil
}
