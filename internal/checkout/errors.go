package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrIllegalTransition  = errors.New("illegal checkout transition")
	ErrSessionOpen        = errors.New("payment session already open")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrNoActiveCheckout   = errors.New("no active checkout")
)

// ValidationError rejects an order request before any network call.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func illegal(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
