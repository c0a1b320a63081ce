package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kiwari-pos/checkout/internal/config"
	"github.com/kiwari-pos/checkout/internal/handler"
	"github.com/kiwari-pos/checkout/internal/payment"
	"github.com/kiwari-pos/checkout/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(
	cfg *config.Config,
	carts handler.CartStore,
	desk handler.CheckoutDesk,
	orders handler.OrderTracker,
	payments *payment.Handler,
	hub *ws.Hub,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	r.Route("/cart", handler.NewCartHandler(carts, cfg.SessionSecret).RegisterRoutes)
	r.Route("/checkout", handler.NewCheckoutHandler(desk).RegisterRoutes)
	r.Route("/orders", handler.NewOrderHandler(orders).RegisterRoutes)

	// Payment sandbox page and its callbacks (session token required)
	payments.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/carts/{cartID}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.SessionSecret, w, r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
