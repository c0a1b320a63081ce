package enum

// ── Group A: State machines ──

// Order status as stored by the order backend.
const (
	OrderStatusPending   = "pending"
	OrderStatusSuccess   = "success"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

// Checkout attempt states.
const (
	CheckoutStateDraft           = "DRAFT"
	CheckoutStateSubmitted       = "SUBMITTED"
	CheckoutStateAwaitingPayment = "AWAITING_PAYMENT"
	CheckoutStateConfirmed       = "CONFIRMED"
	CheckoutStateFailed          = "FAILED"
	CheckoutStateCancelled       = "CANCELLED"
)

const (
	TransactionStatusSuccess = "success"
)

// ── Group B: Configurable labels ──

const (
	PaymentMethodGateway        = "Razorpay"
	PaymentMethodCashOnDelivery = "Cash on Delivery"
)

// Event types pushed to cart watchers.
const (
	EventCartUpdated             = "cart.updated"
	EventCheckoutSubmitted       = "checkout.submitted"
	EventCheckoutAwaitingPayment = "checkout.awaiting_payment"
	EventCheckoutConfirmed       = "checkout.confirmed"
	EventCheckoutFailed          = "checkout.failed"
	EventCheckoutCancelled       = "checkout.cancelled"
	EventReceiptShared           = "receipt.shared"
)
