// Package receipt derives customer receipts from confirmed orders and hands
// them to a thermal printer and a document sharer.
package receipt

import (
	"fmt"
	"time"

	"github.com/kiwari-pos/checkout/internal/backend"
	"github.com/kiwari-pos/checkout/internal/enum"
	"github.com/shopspring/decimal"
)

const (
	rule             = "----------------"
	defaultAddress   = "Not specified"
	defaultSymbol    = "₹"
	receiptTimestamp = "02/01/2006, 15:04:05"
)

type Line struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// Order is the part of a confirmed order a receipt is built from.
type Order struct {
	Number          string
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Lines           []Line
	Total           decimal.Decimal
}

type Receipt struct {
	OrderID         string          `json:"order_id"`
	OrderTime       time.Time       `json:"order_time"`
	Lines           []Line          `json:"items"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentID       string          `json:"payment_id,omitempty"`
	DeliveryAddress string          `json:"delivery_address"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	Symbol          string          `json:"-"`
}

// Build derives the receipt for o. tx is nil for orders paid on delivery.
func Build(o Order, tx *backend.Transaction, paymentMethod string, at time.Time) Receipt {
	if paymentMethod == "" {
		paymentMethod = enum.PaymentMethodCashOnDelivery
	}
	address := o.DeliveryAddress
	if address == "" {
		address = defaultAddress
	}

	lines := make([]Line, len(o.Lines))
	for i, l := range o.Lines {
		l.Total = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lines[i] = l
	}

	r := Receipt{
		OrderID:         o.Number,
		OrderTime:       at,
		Lines:           lines,
		Total:           o.Total,
		PaymentMethod:   paymentMethod,
		DeliveryAddress: address,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		Symbol:          defaultSymbol,
	}
	if tx != nil {
		r.PaymentID = tx.PaymentID
	}
	return r
}

func (r Receipt) money(d decimal.Decimal) string {
	sym := r.Symbol
	if sym == "" {
		sym = defaultSymbol
	}
	return sym + d.StringFixed(2)
}

// Lines renders the thermal printer layout, one printed line per element.
func Lines(r Receipt) []string {
	out := []string{
		"",
		"RECEIPT",
		rule,
		"Order ID: " + r.OrderID,
		"Time: " + r.OrderTime.Format(receiptTimestamp),
		"",
		"ITEMS",
		rule,
	}
	for _, l := range r.Lines {
		out = append(out,
			fmt.Sprintf("%s x%d", l.Name, l.Quantity),
			r.money(l.UnitPrice),
		)
	}
	out = append(out,
		"",
		rule,
		"Total: "+r.money(r.Total),
		"Payment Method: "+r.PaymentMethod,
		"",
	)
	if r.DeliveryAddress != "" {
		out = append(out,
			"DELIVERY ADDRESS",
			rule,
			r.DeliveryAddress,
			"",
		)
	}
	out = append(out, "Thank you for your order!", "", "", "")
	return out
}
