package checkout

import (
	"context"
	"sync"
)

// Desk owns the cart's collaborators and at most one live attempt.
type Desk struct {
	mu      sync.Mutex
	deps    Deps
	current *Orchestrator
}

func NewDesk(deps Deps) *Desk {
	return &Desk{deps: deps}
}

// Begin freezes the cart and starts a new attempt in DRAFT. It fails with
// ErrCheckoutInProgress while the current attempt has not finished.
func (d *Desk) Begin(ctx context.Context, c Customer) (*Orchestrator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && !d.current.State().IsTerminal() {
		return nil, ErrCheckoutInProgress
	}

	o, err := New(d.deps, d.deps.Cart.Snapshot(), c)
	if err != nil {
		return nil, err
	}
	d.current = o
	return o, nil
}

// Current returns the latest attempt, finished or not.
func (d *Desk) Current() (*Orchestrator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil, ErrNoActiveCheckout
	}
	return d.current, nil
}
