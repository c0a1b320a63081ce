package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier checks the gateway signature: hex(HMAC-SHA256(order_id|payment_id, secret)).
// A nil Verifier, or one without a secret, accepts every payload.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(p Payload) error {
	if v == nil || len(v.secret) == 0 {
		return nil
	}
	want := Sign(string(v.secret), p.GatewayOrderID, p.PaymentID)
	if !hmac.Equal([]byte(want), []byte(p.Signature)) {
		return &PaymentError{Reason: "signature mismatch", Raw: p.PaymentID}
	}
	return nil
}

// Sign computes the signature the gateway attaches to a successful payment.
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
