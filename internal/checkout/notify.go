package checkout

// Event is published on every state transition of an attempt.
type Event struct {
	Type        string `json:"type"`
	CartID      string `json:"cart_id"`
	OrderNumber string `json:"order_number"`
	State       State  `json:"state"`
}

// Notifier receives checkout events. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }
