// Package cart holds the customer's authoritative cart and mirrors it into a
// kvstore so it survives restarts.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/kiwari-pos/checkout/internal/kvstore"
	"github.com/shopspring/decimal"
)

// Keys under which the cart is persisted.
const (
	KeyEntries = "cart"
	KeyID      = "cartId"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrMissingItemID   = errors.New("item id is required")
)

// Item is a purchasable item as offered by the menu. Rate may be any JSON
// value; it is coerced when the item enters the cart.
type Item struct {
	ItemID              string `json:"id"`
	Name                string `json:"name"`
	Rate                any    `json:"rate"`
	SpecialInstructions string `json:"special_instructions"`
}

// Entry is one line of the cart.
type Entry struct {
	ItemID              string          `json:"id"`
	Name                string          `json:"name"`
	UnitPrice           decimal.Decimal `json:"rate"`
	Quantity            int             `json:"quantity"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	CartID              string          `json:"cart_id"`
}

// LineTotal is UnitPrice × Quantity.
func (e Entry) LineTotal() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

type Totals struct {
	ItemCount int             `json:"item_count"`
	Amount    decimal.Decimal `json:"amount"`
}

// Snapshot is a frozen copy of the cart. Later cart mutations do not affect it.
type Snapshot struct {
	ID         string    `json:"id"`
	Entries    []Entry   `json:"entries"`
	Totals     Totals    `json:"totals"`
	CapturedAt time.Time `json:"captured_at"`
}

func (s Snapshot) IsEmpty() bool { return len(s.Entries) == 0 }

// Option configures a Store.
type Option func(*Store)

// WithObserver registers fn to be called with a snapshot after every mutation.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Store) { s.observer = fn }
}

// WithIDGenerator replaces the cart id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces the time source used for snapshots.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// Store is the single authoritative cart. All methods are safe for concurrent use;
// mutations and their persistence are serialized.
type Store struct {
	mu       sync.Mutex
	kv       kvstore.Store
	id       string
	entries  []Entry
	observer func(Snapshot)
	newID    func() string
	now      func() time.Time
}

// storedEntry tolerates whatever price representation was persisted.
type storedEntry struct {
	ItemID              string          `json:"id"`
	Name                string          `json:"name"`
	Rate                json.RawMessage `json:"rate"`
	Quantity            int             `json:"quantity"`
	SpecialInstructions string          `json:"special_instructions"`
	CartID              string          `json:"cart_id"`
}

// Open loads the cart from kv. A missing id is minted and persisted; an
// unreadable entry list is logged and replaced by an empty cart.
func Open(ctx context.Context, kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		newID: NewID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	id, err := kv.Get(ctx, KeyID)
	switch {
	case err == nil && id != "":
		s.id = id
	case err != nil && !errors.Is(err, kvstore.ErrNotFound):
		log.Printf("ERROR: load cart id: %v", err)
	}

	raw, err := kv.Get(ctx, KeyEntries)
	switch {
	case err == nil:
		entries, decodeErr := decodeEntries(raw)
		if decodeErr != nil {
			log.Printf("ERROR: decode persisted cart, starting empty: %v", decodeErr)
		} else {
			s.entries = entries
		}
	case !errors.Is(err, kvstore.ErrNotFound):
		log.Printf("ERROR: load cart: %v", err)
	}

	if s.id == "" {
		s.id = s.newID()
		s.persistLocked(ctx)
	}
	return s
}

func decodeEntries(raw string) ([]Entry, error) {
	var stored []storedEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(stored))
	seen := make(map[string]int, len(stored))
	for _, se := range stored {
		if se.ItemID == "" || se.Quantity <= 0 {
			continue
		}
		if i, ok := seen[se.ItemID]; ok {
			entries[i].Quantity += se.Quantity
			continue
		}
		seen[se.ItemID] = len(entries)
		entries = append(entries, Entry{
			ItemID:              se.ItemID,
			Name:                se.Name,
			UnitPrice:           Coerce(se.Rate),
			Quantity:            se.Quantity,
			SpecialInstructions: se.SpecialInstructions,
			CartID:              se.CartID,
		})
	}
	return entries, nil
}

// Add puts qty units of item into the cart. An item already present keeps its
// name and price; only its quantity grows.
func (s *Store) Add(ctx context.Context, item Item, qty int) error {
	if item.ItemID == "" {
		return ErrMissingItemID
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	if i := s.indexLocked(item.ItemID); i >= 0 {
		s.entries[i].Quantity += qty
	} else {
		s.entries = append(s.entries, Entry{
			ItemID:              item.ItemID,
			Name:                item.Name,
			UnitPrice:           Coerce(item.Rate),
			Quantity:            qty,
			SpecialInstructions: item.SpecialInstructions,
			CartID:              s.id,
		})
	}
	snap := s.commitLocked(ctx)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Remove deletes the entry with itemID. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, itemID string) {
	s.mu.Lock()
	i := s.indexLocked(itemID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	snap := s.commitLocked(ctx)
	s.mu.Unlock()

	s.notify(snap)
}

// UpdateQuantity sets the quantity of itemID. qty <= 0 removes the entry.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, qty int) {
	if qty <= 0 {
		s.Remove(ctx, itemID)
		return
	}

	s.mu.Lock()
	i := s.indexLocked(itemID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.entries[i].Quantity = qty
	snap := s.commitLocked(ctx)
	s.mu.Unlock()

	s.notify(snap)
}

// Clear empties the cart and assigns it a fresh id.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	prev := s.id
	next := s.newID()
	for next == prev {
		next = s.newID()
	}
	s.id = next
	s.entries = nil
	snap := s.commitLocked(ctx)
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalsOf(s.entries)
}

func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Entries returns a copy of the cart lines in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return Snapshot{
		ID:         s.id,
		Entries:    entries,
		Totals:     totalsOf(entries),
		CapturedAt: s.now(),
	}
}

func (s *Store) indexLocked(itemID string) int {
	for i := range s.entries {
		if s.entries[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// commitLocked persists the current state and returns the snapshot for observers.
func (s *Store) commitLocked(ctx context.Context) Snapshot {
	s.persistLocked(ctx)
	return s.snapshotLocked()
}

// persistLocked writes both keys. Failures are logged and swallowed; the
// in-memory cart stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		log.Printf("ERROR: encode cart: %v", err)
		return
	}
	if err := s.kv.Set(ctx, KeyEntries, string(data)); err != nil {
		log.Printf("ERROR: persist cart: %v", asPersistenceError("set", KeyEntries, err))
	}
	if err := s.kv.Set(ctx, KeyID, s.id); err != nil {
		log.Printf("ERROR: persist cart id: %v", asPersistenceError("set", KeyID, err))
	}
}

func (s *Store) notify(snap Snapshot) {
	if s.observer != nil {
		s.observer(snap)
	}
}

func asPersistenceError(op, key string, err error) error {
	var pe *kvstore.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &kvstore.PersistenceError{Op: op, Key: key, Err: err}
}

func totalsOf(entries []Entry) Totals {
	t := Totals{Amount: decimal.Zero}
	for _, e := range entries {
		t.ItemCount += e.Quantity
		t.Amount = t.Amount.Add(e.LineTotal())
	}
	return t
}
