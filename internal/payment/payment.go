// Package payment bridges the checkout to the gateway's hosted checkout
// surface. Every checkout opens one Session that resolves exactly once: with
// the gateway's success payload, with a dismissal, or with something it cannot
// make sense of.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrSessionNotFound = errors.New("payment session not found")

// Config is serialized verbatim as the gateway's checkout options.
type Config struct {
	Key            string  `json:"key"`
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	GatewayOrderID string  `json:"order_id"`
	Prefill        Prefill `json:"prefill"`
	Theme          Theme   `json:"theme"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color"`
}

type Kind string

const (
	KindSuccess   Kind = "success"
	KindCancelled Kind = "cancelled"
	KindMalformed Kind = "malformed"
)

// DismissedMessage is what the sandbox sends when the user closes the checkout.
const DismissedMessage = "dismissed"

// Payload is the gateway's success response.
type Payload struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

// Event is the single terminal outcome of a session.
type Event struct {
	Kind    Kind    `json:"kind"`
	Payload Payload `json:"payload"`
	Raw     string  `json:"raw,omitempty"`
}

// ParseMessage classifies a raw sandbox message.
func ParseMessage(data []byte) Event {
	raw := strings.TrimSpace(string(data))
	if raw == DismissedMessage {
		return Event{Kind: KindCancelled, Raw: raw}
	}

	var msg struct {
		RazorpayOrderID   string `json:"razorpay_order_id"`
		RazorpayPaymentID string `json:"razorpay_payment_id"`
		RazorpaySignature string `json:"razorpay_signature"`
		GatewayOrderID    string `json:"gateway_order_id"`
		GatewayPaymentID  string `json:"gateway_payment_id"`
		GatewaySignature  string `json:"gateway_signature"`
	}
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Event{Kind: KindMalformed, Raw: raw}
	}

	p := Payload{
		GatewayOrderID: firstNonEmpty(msg.RazorpayOrderID, msg.GatewayOrderID),
		PaymentID:      firstNonEmpty(msg.RazorpayPaymentID, msg.GatewayPaymentID),
		Signature:      firstNonEmpty(msg.RazorpaySignature, msg.GatewaySignature),
	}
	if p.GatewayOrderID == "" || p.PaymentID == "" {
		return Event{Kind: KindMalformed, Raw: raw}
	}
	return Event{Kind: KindSuccess, Payload: p, Raw: raw}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// PaymentError is a terminal event the checkout cannot accept.
type PaymentError struct {
	Reason string
	Raw    string
}

func (e *PaymentError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("payment: %s", e.Reason)
	}
	return fmt.Sprintf("payment: %s: %q", e.Reason, e.Raw)
}
