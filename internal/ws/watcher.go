package ws

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/kiwari-pos/checkout/internal/auth"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10

	// Watchers only send control frames.
	maxInboundSize = 512

	outboxSize = 256
)

var (
	errNoToken      = errors.New("missing token")
	errBadToken     = errors.New("invalid token")
	errNoCart       = errors.New("invalid cart id")
	errCartMismatch = errors.New("cart access denied")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Access is decided by the cart token, not the origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// watcher is one open connection following a cart's events. The hub owns
// outbox and closes it when the watcher is dropped.
type watcher struct {
	hub    *Hub
	conn   *websocket.Conn
	cartID string
	outbox chan []byte
}

func newWatcher(hub *Hub, conn *websocket.Conn, cartID string) *watcher {
	return &watcher{hub: hub, conn: conn, cartID: cartID, outbox: make(chan []byte, outboxSize)}
}

// listen keeps the read deadline fresh and unregisters on disconnect.
func (w *watcher) listen() {
	defer func() {
		w.hub.unregister <- w
		w.conn.Close()
	}()

	w.conn.SetReadLimit(maxInboundSize)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := w.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			log.Printf("ERROR: cart %s watcher: %v", w.cartID, err)
		}
		return
	}
}

// deliver writes each queued event as its own text frame and pings on idle.
func (w *watcher) deliver() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-w.outbox:
			if !ok {
				w.write(websocket.CloseMessage, nil)
				return
			}
			if err := w.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := w.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (w *watcher) write(kind int, data []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(kind, data)
}

// authorize returns the cart a watch request may follow. Only cart tokens
// qualify; payment-session tokens are refused.
func authorize(secret string, r *http.Request) (string, int, error) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		return "", http.StatusUnauthorized, errNoToken
	}
	claims, err := auth.ValidateToken(secret, raw)
	if err != nil {
		return "", http.StatusUnauthorized, errBadToken
	}
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		return "", http.StatusBadRequest, errNoCart
	}
	if claims.HasSession() || claims.CartID != cartID {
		return "", http.StatusForbidden, errCartMismatch
	}
	return cartID, 0, nil
}

// ServeWS handles WS /ws/carts/{cartID}?token=JWT.
func ServeWS(hub *Hub, secret string, w http.ResponseWriter, r *http.Request) {
	cartID, status, err := authorize(secret, r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: watch cart %s: upgrade: %v", cartID, err)
		return
	}

	wt := newWatcher(hub, conn, cartID)
	hub.register <- wt
	go wt.deliver()
	go wt.listen()
}
