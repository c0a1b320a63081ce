package ws

import (
	"sync"

	"github.com/kiwari-pos/checkout/internal/cart"
	"github.com/kiwari-pos/checkout/internal/checkout"
	"github.com/kiwari-pos/checkout/internal/enum"
)

// Notify implements checkout.Notifier.
func (h *Hub) Notify(ev checkout.Event) {
	h.Publish(ev.CartID, ev.Type, ev)
}

// ReceiptShared tells watchers of cartID where the shared receipt lives.
func (h *Hub) ReceiptShared(cartID, uri string) {
	h.Publish(cartID, enum.EventReceiptShared, map[string]string{"cart_id": cartID, "uri": uri})
}

// CartObserver returns a cart.Store observer that publishes cart.updated.
// When a clear rotates the cart id, watchers of the previous id get the new
// snapshot too, so they can follow the cart to its new room.
func (h *Hub) CartObserver() func(cart.Snapshot) {
	var (
		mu   sync.Mutex
		last string
	)
	return func(snap cart.Snapshot) {
		mu.Lock()
		prev := last
		last = snap.ID
		mu.Unlock()

		h.Publish(snap.ID, enum.EventCartUpdated, snap)
		if prev != "" && prev != snap.ID {
			h.Publish(prev, enum.EventCartUpdated, snap)
		}
	}
}
