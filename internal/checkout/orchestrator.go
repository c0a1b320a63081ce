// Package checkout drives one cart through order submission, payment and
// receipt. An Orchestrator owns a single attempt; a Desk makes sure only one
// attempt is live at a time.
package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kiwari-pos/checkout/internal/backend"
	"github.com/kiwari-pos/checkout/internal/cart"
	"github.com/kiwari-pos/checkout/internal/enum"
	"github.com/kiwari-pos/checkout/internal/payment"
	"github.com/kiwari-pos/checkout/internal/receipt"
)

// Backend is the subset of the order backend the orchestrator calls.
// Satisfied by *backend.Client.
type Backend interface {
	CreateOrder(ctx context.Context, o backend.Order) (*backend.Order, error)
	CreateGatewayOrder(ctx context.Context, req backend.GatewayOrderRequest) (*backend.GatewayOrder, error)
	CreateTransaction(ctx context.Context, tx backend.Transaction) (*backend.Transaction, error)
}

// Bridge opens payment sessions. Satisfied by *payment.Bridge.
type Bridge interface {
	Open(ctx context.Context, cartID string, cfg payment.Config) (*payment.Session, error)
}

// Emitter emits receipts. Satisfied by *receipt.Emitter.
type Emitter interface {
	Emit(ctx context.Context, r receipt.Receipt) receipt.Report
}

// Cart is the subset of the cart store checkout needs. Satisfied by *cart.Store.
type Cart interface {
	Snapshot() cart.Snapshot
	Clear(ctx context.Context)
}

// Verifier checks a success payload. Satisfied by *payment.Verifier.
type Verifier interface {
	Verify(p payment.Payload) error
}

// GatewaySettings fill the checkout options the backend does not return.
type GatewaySettings struct {
	Key         string
	Currency    string
	Name        string
	Description string
	ThemeColor  string
}

// Deps are the collaborators of an attempt. Notifier and Verifier are optional.
type Deps struct {
	Cart     Cart
	Backend  Backend
	Bridge   Bridge
	Emitter  Emitter
	Notifier Notifier
	Verifier Verifier
	Gateway  GatewaySettings
	Now      func() time.Time
}

// View is an immutable picture of an attempt.
type View struct {
	State          State                `json:"state"`
	CartID         string               `json:"cart_id"`
	Order          OrderRequest         `json:"order"`
	BackendOrderID string               `json:"backend_order_id,omitempty"`
	GatewayOrderID string               `json:"gateway_order_id,omitempty"`
	SessionID      string               `json:"session_id,omitempty"`
	CheckoutURL    string               `json:"checkout_url,omitempty"`
	PaymentMethod  string               `json:"payment_method,omitempty"`
	Transaction    *backend.Transaction `json:"transaction,omitempty"`
	Receipt        *receipt.Report      `json:"receipt,omitempty"`
	LastError      string               `json:"last_error,omitempty"`
}

// Orchestrator is the state machine for one checkout attempt. It works only
// from the cart snapshot captured when it was created.
type Orchestrator struct {
	mu   sync.Mutex
	deps Deps

	state         State
	snapshot      cart.Snapshot
	req           OrderRequest
	backendOrder  *backend.Order
	gatewayOrder  *backend.GatewayOrder
	session       *payment.Session
	tx            *backend.Transaction
	report        *receipt.Report
	paymentMethod string
	lastErr       error
}

// New builds the order request from snap and returns an attempt in DRAFT.
func New(deps Deps, snap cart.Snapshot, c Customer) (*Orchestrator, error) {
	req, err := BuildOrderRequest(snap, c)
	if err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		deps:     deps,
		state:    StateDraft,
		snapshot: snap,
		req:      req,
	}, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns a copy of the attempt's current state.
func (o *Orchestrator) Status() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := View{
		State:         o.state,
		CartID:        o.snapshot.ID,
		Order:         o.req.clone(),
		PaymentMethod: o.paymentMethod,
	}
	if o.backendOrder != nil {
		v.BackendOrderID = o.backendOrder.ID.String()
	}
	if o.gatewayOrder != nil {
		v.GatewayOrderID = o.gatewayOrder.OrderID
	}
	if o.session != nil {
		v.SessionID = o.session.ID.String()
		if _, resolved := o.session.Result(); !resolved {
			v.CheckoutURL = o.session.URL
		}
	}
	if o.tx != nil {
		tx := *o.tx
		v.Transaction = &tx
	}
	if o.report != nil {
		rep := *o.report
		v.Receipt = &rep
	}
	if o.lastErr != nil {
		v.LastError = o.lastErr.Error()
	}
	return v
}

// SubmitOrder stores the order with the backend. On a network failure the
// attempt stays in DRAFT and a retry sends the same order number.
func (o *Orchestrator) SubmitOrder(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateDraft {
		return illegal(o.state, StateSubmitted)
	}

	created, err := o.deps.Backend.CreateOrder(ctx, o.req.toBackend())
	if err != nil {
		o.lastErr = err
		return fmt.Errorf("submit order %s: %w", o.req.OrderNumber, err)
	}

	o.backendOrder = created
	o.lastErr = nil
	o.transitionLocked(StateSubmitted)
	log.Printf("order %s submitted as backend order %s", o.req.OrderNumber, created.ID)
	return nil
}

// InitiateOnlinePayment opens the gateway checkout for a submitted order.
func (o *Orchestrator) InitiateOnlinePayment(ctx context.Context) (*payment.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionOpenLocked() {
		return nil, ErrSessionOpen
	}
	if o.state != StateSubmitted {
		return nil, illegal(o.state, StateAwaitingPayment)
	}

	gw, err := o.deps.Backend.CreateGatewayOrder(ctx, backend.GatewayOrderRequest{
		Amount:   o.req.TotalAmount.Round(0).IntPart(),
		Currency: o.deps.Gateway.Currency,
		Receipt:  "receipt_" + o.backendOrder.ID.String(),
		Notes: map[string]string{
			"order_id":      o.backendOrder.ID.String(),
			"customer_name": o.req.CustomerName,
		},
	})
	if err != nil {
		o.lastErr = err
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	cfg := payment.Config{
		Key:            firstNonEmpty(gw.KeyID, o.deps.Gateway.Key),
		Amount:         gw.Amount,
		Currency:       firstNonEmpty(gw.Currency, o.deps.Gateway.Currency),
		Name:           o.deps.Gateway.Name,
		Description:    o.deps.Gateway.Description,
		GatewayOrderID: gw.OrderID,
		Prefill: payment.Prefill{
			Name:    o.req.CustomerName,
			Email:   o.req.CustomerEmail,
			Contact: o.req.CustomerPhone,
		},
		Theme: payment.Theme{Color: o.deps.Gateway.ThemeColor},
	}
	sess, err := o.deps.Bridge.Open(ctx, o.snapshot.ID, cfg)
	if err != nil {
		o.lastErr = err
		return nil, fmt.Errorf("open payment session: %w", err)
	}

	o.gatewayOrder = gw
	o.session = sess
	o.paymentMethod = enum.PaymentMethodGateway
	o.lastErr = nil
	o.transitionLocked(StateAwaitingPayment)
	return sess, nil
}

// AwaitPayment waits for the open session's terminal event and applies it.
// Cancelling ctx abandons the attempt.
func (o *Orchestrator) AwaitPayment(ctx context.Context) error {
	o.mu.Lock()
	sess := o.session
	state := o.state
	o.mu.Unlock()

	if state != StateAwaitingPayment || sess == nil {
		return illegal(state, StateConfirmed)
	}

	ev, err := sess.Wait(ctx)
	if err != nil {
		if abandonErr := o.Abandon(context.WithoutCancel(ctx)); abandonErr != nil {
			log.Printf("ERROR: abandon checkout %s: %v", o.req.OrderNumber, abandonErr)
		}
		return fmt.Errorf("await payment: %w", err)
	}
	return o.OnPaymentResult(ctx, ev)
}

// OnPaymentResult applies a terminal payment event. Events arriving after the
// attempt has finished are ignored. Once the session has resolved, its
// recorded event is applied in place of ev.
func (o *Orchestrator) OnPaymentResult(ctx context.Context, ev payment.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.IsTerminal() {
		return nil
	}
	if o.state != StateAwaitingPayment {
		return illegal(o.state, StateConfirmed)
	}
	if o.session != nil && !o.session.Resolve(ev) {
		ev, _ = o.session.Result()
	}

	switch ev.Kind {
	case payment.KindCancelled:
		o.req.Status = enum.OrderStatusCancelled
		o.transitionLocked(StateCancelled)
		return nil
	case payment.KindSuccess:
		return o.confirmPaymentLocked(ctx, ev.Payload)
	default:
		return o.failLocked(&payment.PaymentError{Reason: "unexpected payment message", Raw: ev.Raw})
	}
}

func (o *Orchestrator) confirmPaymentLocked(ctx context.Context, p payment.Payload) error {
	if p.GatewayOrderID != o.gatewayOrder.OrderID {
		return o.failLocked(&payment.PaymentError{Reason: "gateway order mismatch", Raw: p.GatewayOrderID})
	}
	if o.deps.Verifier != nil {
		if err := o.deps.Verifier.Verify(p); err != nil {
			return o.failLocked(err)
		}
	}

	tx, err := o.deps.Backend.CreateTransaction(ctx, backend.Transaction{
		GatewayOrderID: p.GatewayOrderID,
		PaymentID:      p.PaymentID,
		Signature:      p.Signature,
		Amount:         o.req.TotalAmount,
		Status:         enum.TransactionStatusSuccess,
	})
	if err != nil {
		o.lastErr = err
		return fmt.Errorf("record transaction %s: %w", p.PaymentID, err)
	}
	o.tx = tx

	o.finishLocked(ctx, tx, enum.PaymentMethodGateway)
	o.req.Status = enum.OrderStatusSuccess
	o.transitionLocked(StateConfirmed)
	return nil
}

// CompleteCashOnDelivery confirms a submitted order that will be paid on delivery.
func (o *Orchestrator) CompleteCashOnDelivery(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionOpenLocked() {
		return ErrSessionOpen
	}
	if o.state != StateSubmitted {
		return illegal(o.state, StateConfirmed)
	}

	o.paymentMethod = enum.PaymentMethodCashOnDelivery
	o.finishLocked(ctx, nil, enum.PaymentMethodCashOnDelivery)
	o.transitionLocked(StateConfirmed)
	return nil
}

// Abandon cancels the attempt and releases any open payment session. A
// session that already delivered a success payload is paid and cannot be
// abandoned; its transaction is retried by redelivering the result.
func (o *Orchestrator) Abandon(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateCancelled {
		return nil
	}
	if !CanTransitionTo(o.state, StateCancelled) || o.paidLocked() {
		return illegal(o.state, StateCancelled)
	}
	if o.session != nil {
		o.session.Close()
	}
	o.req.Status = enum.OrderStatusCancelled
	o.transitionLocked(StateCancelled)
	return nil
}

func (o *Orchestrator) paidLocked() bool {
	if o.session == nil {
		return false
	}
	ev, ok := o.session.Result()
	return ok && ev.Kind == payment.KindSuccess
}

// finishLocked emits the receipt and then clears the cart, whatever the
// receipt's outcome.
func (o *Orchestrator) finishLocked(ctx context.Context, tx *backend.Transaction, method string) {
	if o.deps.Emitter != nil {
		rep := o.deps.Emitter.Emit(ctx, o.receiptLocked(tx, method))
		o.report = &rep
	}
	o.deps.Cart.Clear(ctx)
}

func (o *Orchestrator) receiptLocked(tx *backend.Transaction, method string) receipt.Receipt {
	lines := make([]receipt.Line, len(o.req.Items))
	for i, l := range o.req.Items {
		lines[i] = receipt.Line{Name: l.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return receipt.Build(receipt.Order{
		Number:          o.req.OrderNumber,
		CustomerName:    o.req.CustomerName,
		CustomerPhone:   o.req.CustomerPhone,
		DeliveryAddress: o.req.DeliveryAddress,
		Lines:           lines,
		Total:           o.req.TotalAmount,
	}, tx, method, o.deps.Now())
}

func (o *Orchestrator) failLocked(err error) error {
	o.lastErr = err
	o.req.Status = enum.OrderStatusFailed
	o.transitionLocked(StateFailed)
	log.Printf("ERROR: payment for order %s failed: %v", o.req.OrderNumber, err)
	return err
}

func (o *Orchestrator) sessionOpenLocked() bool {
	if o.session == nil {
		return false
	}
	_, resolved := o.session.Result()
	return !resolved
}

func (o *Orchestrator) transitionLocked(to State) {
	if !CanTransitionTo(o.state, to) {
		panic(fmt.Sprintf("checkout: illegal transition %s -> %s", o.state, to))
	}
	o.state = to
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(Event{
			Type:        eventFor(to),
			CartID:      o.snapshot.ID,
			OrderNumber: o.req.OrderNumber,
			State:       to,
		})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
