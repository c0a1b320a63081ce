package payment

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	mw "github.com/kiwari-pos/checkout/internal/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the session token is the credential
	},
}

// Handler serves the sandbox page and receives its terminal message.
type Handler struct {
	bridge    *Bridge
	secret    string
	scriptURL string
}

func NewHandler(bridge *Bridge, secret, scriptURL string) *Handler {
	return &Handler{bridge: bridge, secret: secret, scriptURL: scriptURL}
}

// RegisterRoutes mounts the sandbox routes. Every route needs the session token.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payments/sessions/{sid}", func(r chi.Router) {
		r.Use(mw.Authenticate(h.secret))
		r.Use(mw.RequireSession)
		r.Get("/", h.Page)
		r.Get("/ws", h.ServeWS)
		r.Post("/result", h.Result)
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sid, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return nil, false
	}
	sess, err := h.bridge.Lookup(sid)
	if err != nil {
		http.Error(w, "payment session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// Page renders the hosted checkout for an open session.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := checkoutPage.Execute(w, pageData{ScriptURL: h.scriptURL, Options: sess.Config}); err != nil {
		log.Printf("ERROR: render checkout page: %v", err)
	}
}

// ServeWS relays the page's single terminal message into the session.
// Endpoint: WS /payments/sessions/{sid}/ws?token=JWT
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	go relay(sess, conn)
}

// relay resolves sess with the first text frame. A socket that goes away
// before sending anything counts as the user dismissing the checkout.
func relay(sess *Session, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer func() {
		close(stop)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-sess.Done():
				// resolved through another channel, e.g. the callback or an abandon
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session resolved"),
					time.Now().Add(writeWait))
				conn.Close()
				return
			case <-stop:
				return
			}
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("payment websocket error: %v", err)
			}
			sess.Resolve(Event{Kind: KindCancelled, Raw: "disconnected"})
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		sess.Resolve(ParseMessage(data))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return
	}
}

// Result accepts the terminal message through a plain callback, for surfaces
// that redirect instead of holding a socket open.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ev := ParseMessage(body)
	if !sess.Resolve(ev) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session already resolved"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": string(ev.Kind)})
}
