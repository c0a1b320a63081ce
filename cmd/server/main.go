package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiwari-pos/checkout/internal/backend"
	"github.com/kiwari-pos/checkout/internal/cart"
	"github.com/kiwari-pos/checkout/internal/checkout"
	"github.com/kiwari-pos/checkout/internal/config"
	"github.com/kiwari-pos/checkout/internal/kvstore"
	"github.com/kiwari-pos/checkout/internal/payment"
	"github.com/kiwari-pos/checkout/internal/receipt"
	"github.com/kiwari-pos/checkout/internal/router"
	"github.com/kiwari-pos/checkout/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeStore, err := kvstore.Open(ctx, cfg.StoreBackend, cfg.RedisURL, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to open %s store: %v", cfg.StoreBackend, err)
	}
	defer closeStore()
	log.Printf("Cart store: %s", cfg.StoreBackend)

	hub := ws.NewHub()
	go hub.Run()

	store := cart.Open(ctx, kv, cart.WithObserver(hub.CartObserver()))

	client := backend.New(cfg.OrderBackendURL, backend.WithTimeout(cfg.BackendTimeout))
	bridge := payment.NewBridge(cfg.SessionSecret, cfg.PublicURL)

	var printer receipt.Printer = receipt.NewWriterPrinter(os.Stdout)
	if cfg.PrinterAddr != "" {
		printer = receipt.NewNetworkPrinter(cfg.PrinterAddr)
	}
	docs := &receipt.FileDocuments{
		Dir: cfg.ReceiptDir,
		// Shares happen before the cart is cleared, so the id is still the
		// one the watchers are subscribed to.
		OnShare: func(ctx context.Context, uri string) error {
			hub.ReceiptShared(store.ID(), uri)
			return nil
		},
	}
	emitter := receipt.NewEmitter(printer, docs, cfg.CompanyName, cfg.ThemeColor)

	desk := checkout.NewDesk(checkout.Deps{
		Cart:     store,
		Backend:  client,
		Bridge:   bridge,
		Emitter:  emitter,
		Notifier: hub,
		Verifier: payment.NewVerifier(cfg.GatewaySecret),
		Gateway: checkout.GatewaySettings{
			Key:         cfg.GatewayKey,
			Currency:    cfg.Currency,
			Name:        cfg.CompanyName,
			Description: "Order payment",
			ThemeColor:  cfg.ThemeColor,
		},
	})

	payments := payment.NewHandler(bridge, cfg.SessionSecret, cfg.GatewayScriptURL)
	r := router.New(cfg, store, desk, client, payments, hub)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
