package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kiwari-pos/checkout/internal/backend"
	"github.com/kiwari-pos/checkout/internal/cart"
	"github.com/kiwari-pos/checkout/internal/checkout"
	"github.com/kiwari-pos/checkout/internal/config"
	"github.com/kiwari-pos/checkout/internal/kvstore"
	"github.com/kiwari-pos/checkout/internal/payment"
	"github.com/kiwari-pos/checkout/internal/router"
	"github.com/kiwari-pos/checkout/internal/ws"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		SessionSecret: "test-secret",
		CORSOrigins:   []string{"http://localhost:5173"},
	}
	store := cart.Open(context.Background(), kvstore.NewMemoryStore())
	client := backend.New("http://127.0.0.1:1")
	bridge := payment.NewBridge(cfg.SessionSecret, "http://localhost:8081")
	desk := checkout.NewDesk(checkout.Deps{Cart: store, Backend: client, Bridge: bridge})
	hub := ws.NewHub()

	return router.New(cfg, store, desk, client, payment.NewHandler(bridge, cfg.SessionSecret, ""), hub)
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("body: got %s", rr.Body.String())
	}
}

func TestRoutesMounted(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/cart", http.StatusOK},
		{"GET", "/checkout", http.StatusNotFound},
		{"GET", "/payments/sessions/00000000-0000-0000-0000-000000000000/", http.StatusUnauthorized},
		{"GET", "/ws/carts/cart_1", http.StatusUnauthorized},
		{"GET", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest("OPTIONS", "/cart/items", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin: got %q", got)
	}
}
