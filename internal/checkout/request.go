package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kiwari-pos/checkout/internal/backend"
	"github.com/kiwari-pos/checkout/internal/cart"
	"github.com/kiwari-pos/checkout/internal/enum"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Customer is who the order is for.
type Customer struct {
	Name            string `json:"name" validate:"required,max=120"`
	Phone           string `json:"phone" validate:"required,min=7,max=20"`
	Email           string `json:"email" validate:"omitempty,email"`
	DeliveryAddress string `json:"delivery_address" validate:"max=500"`
	Notes           string `json:"notes" validate:"max=1000"`
}

type OrderLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderRequest is the order as submitted, built from a frozen cart snapshot.
type OrderRequest struct {
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	Items           []OrderLine     `json:"items"`
	Notes           string          `json:"notes"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewOrderNumber mints a client-side order number.
func NewOrderNumber() string {
	return "ORDER_" + ulid.Make().String()
}

// BuildOrderRequest validates c and freezes snap into a pending order request.
// It performs no I/O.
func BuildOrderRequest(snap cart.Snapshot, c Customer) (OrderRequest, error) {
	if snap.IsEmpty() {
		return OrderRequest{}, &ValidationError{Field: "cart", Reason: "cart is empty", Err: ErrEmptyCart}
	}

	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.DeliveryAddress = strings.TrimSpace(c.DeliveryAddress)
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return OrderRequest{}, &ValidationError{Field: verrs[0].Field(), Reason: reasonFor(verrs[0])}
		}
		return OrderRequest{}, &ValidationError{Field: "customer", Reason: err.Error()}
	}

	items := make([]OrderLine, len(snap.Entries))
	for i, e := range snap.Entries {
		items[i] = OrderLine{
			ItemID:    e.ItemID,
			Name:      e.Name,
			Quantity:  e.Quantity,
			UnitPrice: e.UnitPrice,
		}
	}

	return OrderRequest{
		OrderNumber:     NewOrderNumber(),
		CustomerName:    c.Name,
		CustomerPhone:   c.Phone,
		CustomerEmail:   c.Email,
		DeliveryAddress: c.DeliveryAddress,
		TotalAmount:     snap.Totals.Amount,
		Status:          enum.OrderStatusPending,
		Items:           items,
		Notes:           c.Notes,
	}, nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag() + " check"
}

// toBackend renders the request in the backend's wire shape.
func (r OrderRequest) toBackend() backend.Order {
	items := make([]backend.OrderItem, len(r.Items))
	for i, l := range r.Items {
		items[i] = backend.OrderItem{
			FoodItem: backend.ID(l.ItemID),
			Quantity: l.Quantity,
			Price:    l.UnitPrice,
		}
	}
	return backend.Order{
		OrderNumber:     r.OrderNumber,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerEmail:   r.CustomerEmail,
		DeliveryAddress: r.DeliveryAddress,
		TotalAmount:     r.TotalAmount,
		Status:          r.Status,
		Notes:           r.Notes,
		Items:           items,
	}
}

func (r OrderRequest) clone() OrderRequest {
	r.Items = append([]OrderLine(nil), r.Items...)
	return r
}
