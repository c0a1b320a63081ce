package checkout

import "github.com/kiwari-pos/checkout/internal/enum"

// State is the lifecycle state of one checkout attempt.
type State string

const (
	StateDraft           State = enum.CheckoutStateDraft
	StateSubmitted       State = enum.CheckoutStateSubmitted
	StateAwaitingPayment State = enum.CheckoutStateAwaitingPayment
	StateConfirmed       State = enum.CheckoutStateConfirmed
	StateFailed          State = enum.CheckoutStateFailed
	StateCancelled       State = enum.CheckoutStateCancelled
)

var transitions = map[State][]State{
	StateDraft:           {StateSubmitted, StateCancelled},
	StateSubmitted:       {StateAwaitingPayment, StateConfirmed, StateCancelled},
	StateAwaitingPayment: {StateConfirmed, StateFailed, StateCancelled},
}

func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateCancelled
}

// CanTransitionTo reports whether the state machine allows from -> to.
func CanTransitionTo(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// eventFor maps a state reached by a transition to the event published for it.
func eventFor(s State) string {
	switch s {
	case StateSubmitted:
		return enum.EventCheckoutSubmitted
	case StateAwaitingPayment:
		return enum.EventCheckoutAwaitingPayment
	case StateConfirmed:
		return enum.EventCheckoutConfirmed
	case StateFailed:
		return enum.EventCheckoutFailed
	case StateCancelled:
		return enum.EventCheckoutCancelled
	}
	return ""
}
