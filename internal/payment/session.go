package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Session is a one-shot result future for a single checkout surface.
type Session struct {
	ID     uuid.UUID
	CartID string
	Config Config
	// Token authorizes the sandbox page and its callbacks.
	Token string
	// URL is where the sandbox page for this session is served.
	URL string

	once      sync.Once
	done      chan struct{}
	result    Event
	onResolve func(*Session)
}

// NewSession creates an unresolved session.
func NewSession(id uuid.UUID, cartID string, cfg Config) *Session {
	return &Session{
		ID:     id,
		CartID: cartID,
		Config: cfg,
		done:   make(chan struct{}),
	}
}

// Resolve completes the session with ev. Only the first call wins; it returns
// false for every later call, whose event is discarded.
func (s *Session) Resolve(ev Event) bool {
	won := false
	s.once.Do(func() {
		s.result = ev
		close(s.done)
		won = true
	})
	if won && s.onResolve != nil {
		s.onResolve(s)
	}
	return won
}

// Wait blocks until the session resolves or ctx ends.
func (s *Session) Wait(ctx context.Context) (Event, error) {
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close resolves the session as cancelled if it is still open.
func (s *Session) Close() {
	s.Resolve(Event{Kind: KindCancelled, Raw: "closed"})
}

func (s *Session) Done() <-chan struct{} { return s.done }

// Result returns the terminal event once resolved.
func (s *Session) Result() (Event, bool) {
	select {
	case <-s.done:
		return s.result, true
	default:
		return Event{}, false
	}
}
