package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ID is a backend identifier. The backend may send it as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// OrderItem is one order line as the backend stores it.
type OrderItem struct {
	FoodItem ID              `json:"food_item"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Order struct {
	ID              ID              `json:"id,omitempty"`
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       *time.Time      `json:"created_at,omitempty"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

// GatewayOrderRequest asks the backend to open an order with the payment gateway.
type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway-side order used to open the checkout surface.
type GatewayOrder struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// Transaction records a completed gateway charge against an order.
type Transaction struct {
	ID             ID              `json:"id,omitempty"`
	GatewayOrderID string          `json:"razorpay_order_id"`
	PaymentID      string          `json:"razorpay_payment_id"`
	Signature      string          `json:"razorpay_signature"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
}
