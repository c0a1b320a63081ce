// Package ws pushes cart and checkout events to the connections watching a cart.
package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// cartEvent routes an event to the room of one cart
type cartEvent struct {
	CartID string
	Event  Event
}

// Hub fans cart events out to the watchers of each cart.
type Hub struct {
	// Watchers by cart ID
	rooms map[string]map[*watcher]bool

	register   chan *watcher
	unregister chan *watcher

	// Outbound messages to broadcast
	broadcast chan *cartEvent

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*watcher]bool),
		register:   make(chan *watcher),
		unregister: make(chan *watcher),
		broadcast:  make(chan *cartEvent, 256),
	}
}

// Run starts the hub's main loop. Call it as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case wt := <-h.register:
			h.mu.Lock()
			if h.rooms[wt.cartID] == nil {
				h.rooms[wt.cartID] = make(map[*watcher]bool)
			}
			h.rooms[wt.cartID][wt] = true
			h.mu.Unlock()

		case wt := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[wt.cartID]; ok {
				if _, exists := room[wt]; exists {
					h.dropLocked(wt)
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal %s event: %v", event.Event.Type, err)
				continue
			}

			h.mu.Lock()
			for wt := range h.rooms[event.CartID] {
				select {
				case wt.outbox <- message:
				default:
					// Slow watcher; drop it rather than stall the room.
					h.dropLocked(wt)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) dropLocked(wt *watcher) {
	room := h.rooms[wt.cartID]
	delete(room, wt)
	close(wt.outbox)
	if len(room) == 0 {
		delete(h.rooms, wt.cartID)
	}
}

// BroadcastToCart queues event for every watcher of cartID. It never
// blocks; events are dropped when the queue is full.
func (h *Hub) BroadcastToCart(cartID string, event Event) {
	select {
	case h.broadcast <- &cartEvent{CartID: cartID, Event: event}:
	default:
		log.Printf("ERROR: event queue full, dropping %s for cart %s", event.Type, cartID)
	}
}

// Publish marshals payload and broadcasts it as an event of type typ.
func (h *Hub) Publish(cartID, typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s payload: %v", typ, err)
		return
	}
	h.BroadcastToCart(cartID, Event{Type: typ, Payload: data})
}

// Watchers returns how many watchers follow cartID.
func (h *Hub) Watchers(cartID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[cartID])
}
