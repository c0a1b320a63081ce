package main

import (
	"context"
	"flag"
	"log"

	"github.com/kiwari-pos/checkout/internal/auth"
	"github.com/kiwari-pos/checkout/internal/cart"
	"github.com/kiwari-pos/checkout/internal/config"
	"github.com/kiwari-pos/checkout/internal/kvstore"
)

// demoMenu is what a fresh demo cart is filled with. Rates mix the shapes
// menu data arrives in.
var demoMenu = []struct {
	item cart.Item
	qty  int
}{
	{cart.Item{ItemID: "101", Name: "Paneer Tikka", Rate: "180.00"}, 1},
	{cart.Item{ItemID: "102", Name: "Butter Naan", Rate: 40}, 2},
	{cart.Item{ItemID: "103", Name: "Mango Lassi", Rate: 90.5, SpecialInstructions: "less sugar"}, 1},
}

func main() {
	cfg := config.Load()

	storeKind := flag.String("store", cfg.StoreBackend, "Cart store: redis or postgres")
	reset := flag.Bool("reset", false, "Clear the existing cart before seeding")
	flag.Parse()

	if *storeKind == "memory" {
		log.Fatal("Nothing to seed: the memory store does not outlive this process. Use -store redis or -store postgres.")
	}

	ctx := context.Background()
	kv, closeStore, err := kvstore.Open(ctx, *storeKind, cfg.RedisURL, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to open %s store: %v", *storeKind, err)
	}
	defer closeStore()
	log.Printf("Connected to %s store", *storeKind)

	store := cart.Open(ctx, kv)
	if *reset {
		store.Clear(ctx)
		log.Printf("Cart cleared, new cart ID: %s", store.ID())
	}

	present := make(map[string]bool)
	for _, e := range store.Entries() {
		present[e.ItemID] = true
	}

	for _, m := range demoMenu {
		if present[m.item.ItemID] {
			log.Printf("Item '%s' already in cart, skipping", m.item.Name)
			continue
		}
		if err := store.Add(ctx, m.item, m.qty); err != nil {
			log.Fatalf("Failed to add %s: %v", m.item.Name, err)
		}
		log.Printf("Added %d x %s", m.qty, m.item.Name)
	}

	token, err := auth.GenerateCartToken(cfg.SessionSecret, store.ID())
	if err != nil {
		log.Fatalf("Failed to sign watch token: %v", err)
	}

	totals := store.Totals()
	log.Println("Seed completed successfully")
	log.Printf("Cart ID: %s", store.ID())
	log.Printf("Items: %d, total: %s", totals.ItemCount, totals.Amount.StringFixed(2))
	log.Printf("Watch token: %s", token)
}
