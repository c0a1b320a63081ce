package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/checkout/internal/auth"
	"github.com/kiwari-pos/checkout/internal/cart"
)

// CartStore defines the cart operations needed by cart handlers.
// Satisfied by *cart.Store; narrow interface for testability.
type CartStore interface {
	Snapshot() cart.Snapshot
	Add(ctx context.Context, item cart.Item, qty int) error
	Remove(ctx context.Context, itemID string)
	UpdateQuantity(ctx context.Context, itemID string, qty int)
	Clear(ctx context.Context)
}

// CartHandler handles cart endpoints.
type CartHandler struct {
	store  CartStore
	secret string
}

func NewCartHandler(store CartStore, secret string) *CartHandler {
	return &CartHandler{store: store, secret: secret}
}

// RegisterRoutes registers cart endpoints. Expected to be mounted at /cart.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{itemID}", h.UpdateItem)
	r.Delete("/items/{itemID}", h.RemoveItem)
	r.Delete("/", h.Clear)
}

// --- Request / Response types ---

type addItemRequest struct {
	cart.Item
	Quantity *int `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type cartResponse struct {
	Cart cart.Snapshot `json:"cart"`
	// WatchToken authorizes /ws/carts/{id} for this cart.
	WatchToken string `json:"watch_token,omitempty"`
}

// --- Handlers ---

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	token, err := auth.GenerateCartToken(h.secret, snap.ID)
	if err != nil {
		log.Printf("ERROR: sign watch token for cart %s: %v", snap.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: snap, WatchToken: token})
}

// AddItem handles POST /cart/items. Quantity defaults to 1.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	if err := h.store.Add(r.Context(), req.Item, qty); err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) || errors.Is(err, cart.ErrMissingItemID) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: add item %s: %v", req.ItemID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, cartResponse{Cart: h.store.Snapshot()})
}

// UpdateItem handles PATCH /cart/items/{itemID}. A quantity of 0 or less
// removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}

	h.store.UpdateQuantity(r.Context(), chi.URLParam(r, "itemID"), *req.Quantity)
	writeJSON(w, http.StatusOK, cartResponse{Cart: h.store.Snapshot()})
}

// RemoveItem handles DELETE /cart/items/{itemID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.store.Remove(r.Context(), chi.URLParam(r, "itemID"))
	writeJSON(w, http.StatusOK, cartResponse{Cart: h.store.Snapshot()})
}

// Clear handles DELETE /cart. The cart comes back empty under a new id.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear(r.Context())
	h.Get(w, r)
}
