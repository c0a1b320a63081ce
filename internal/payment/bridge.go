package payment

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kiwari-pos/checkout/internal/auth"
)

// Bridge keeps the registry of open sessions. A session leaves the registry
// as soon as it resolves.
type Bridge struct {
	secret    string
	publicURL string

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewBridge creates a bridge whose sandbox pages are served under publicURL.
func NewBridge(secret, publicURL string) *Bridge {
	return &Bridge{
		secret:    secret,
		publicURL: strings.TrimRight(publicURL, "/"),
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Open registers a new session for cartID and returns it with its sandbox URL.
func (b *Bridge) Open(ctx context.Context, cartID string, cfg Config) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess := NewSession(uuid.New(), cartID, cfg)
	token, err := auth.GenerateSessionToken(b.secret, sess.ID, cartID)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	sess.Token = token
	sess.URL = fmt.Sprintf("%s/payments/sessions/%s?token=%s", b.publicURL, sess.ID, url.QueryEscape(token))
	sess.onResolve = b.deregister

	b.mu.Lock()
	b.sessions[sess.ID] = sess
	b.mu.Unlock()

	log.Printf("payment session %s opened for gateway order %s", sess.ID, cfg.GatewayOrderID)
	return sess, nil
}

// Lookup returns an open session.
func (b *Bridge) Lookup(id uuid.UUID) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// OpenCount is the number of unresolved sessions.
func (b *Bridge) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *Bridge) deregister(sess *Session) {
	b.mu.Lock()
	delete(b.sessions, sess.ID)
	b.mu.Unlock()

	ev, _ := sess.Result()
	log.Printf("payment session %s resolved: %s", sess.ID, ev.Kind)
}
