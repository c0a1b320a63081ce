package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/checkout/internal/backend"
)

// OrderTracker defines the backend reads needed by order handlers.
// Satisfied by *backend.Client.
type OrderTracker interface {
	ListOrders(ctx context.Context) ([]backend.Order, error)
	GetOrder(ctx context.Context, id string) (*backend.Order, error)
}

// OrderHandler exposes order tracking through the order backend.
type OrderHandler struct {
	orders OrderTracker
}

func NewOrderHandler(orders OrderTracker) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, "list orders", err)
		return
	}
	if orders == nil {
		orders = []backend.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
