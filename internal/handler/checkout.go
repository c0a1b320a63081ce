package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/checkout/internal/auth"
	"github.com/kiwari-pos/checkout/internal/checkout"
	"github.com/kiwari-pos/checkout/internal/payment"
)

// CheckoutDesk defines the desk operations needed by checkout handlers.
// Satisfied by *checkout.Desk.
type CheckoutDesk interface {
	Begin(ctx context.Context, c checkout.Customer) (*checkout.Orchestrator, error)
	Current() (*checkout.Orchestrator, error)
}

// CheckoutHandler handles checkout endpoints.
type CheckoutHandler struct {
	desk CheckoutDesk
	// awaitTimeout bounds how long an open payment session is waited on
	// before the attempt is abandoned.
	awaitTimeout time.Duration
}

func NewCheckoutHandler(desk CheckoutDesk) *CheckoutHandler {
	return &CheckoutHandler{desk: desk, awaitTimeout: auth.SessionTokenTTL}
}

// RegisterRoutes registers checkout endpoints. Expected to be mounted at /checkout.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Begin)
	r.Get("/", h.Get)
	r.Post("/submit", h.Submit)
	r.Post("/payment", h.StartPayment)
	r.Post("/payment/result", h.PaymentResult)
	r.Post("/cash", h.CashOnDelivery)
	r.Delete("/", h.Abandon)
}

type paymentResponse struct {
	SessionID   string        `json:"session_id"`
	CheckoutURL string        `json:"checkout_url"`
	Checkout    checkout.View `json:"checkout"`
}

// Begin handles POST /checkout: freeze the cart and submit the order. When
// submission fails on the network the attempt stays in DRAFT and can be
// retried through POST /checkout/submit.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var c checkout.Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	o, err := h.desk.Begin(r.Context(), c)
	if err != nil {
		writeError(w, "begin checkout", err)
		return
	}
	if err := o.SubmitOrder(r.Context()); err != nil {
		writeError(w, "submit order", err)
		return
	}

	writeJSON(w, http.StatusCreated, o.Status())
}

// Get handles GET /checkout.
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.desk.Current()
	if err != nil {
		writeError(w, "get checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, o.Status())
}

// Submit handles POST /checkout/submit.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	o, err := h.desk.Current()
	if err != nil {
		writeError(w, "submit order", err)
		return
	}
	if err := o.SubmitOrder(r.Context()); err != nil {
		writeError(w, "submit order", err)
		return
	}
	writeJSON(w, http.StatusOK, o.Status())
}

// StartPayment handles POST /checkout/payment. The session's terminal event
// is applied in the background once the payment page reports it.
func (h *CheckoutHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	o, err := h.desk.Current()
	if err != nil {
		writeError(w, "start payment", err)
		return
	}

	sess, err := o.InitiateOnlinePayment(r.Context())
	if err != nil {
		writeError(w, "start payment", err)
		return
	}

	go h.await(o)

	writeJSON(w, http.StatusCreated, paymentResponse{
		SessionID:   sess.ID.String(),
		CheckoutURL: sess.URL,
		Checkout:    o.Status(),
	})
}

func (h *CheckoutHandler) await(o *checkout.Orchestrator) {
	ctx, cancel := context.WithTimeout(context.Background(), h.awaitTimeout)
	defer cancel()
	if err := o.AwaitPayment(ctx); err != nil {
		log.Printf("ERROR: await payment for cart %s: %v", o.Status().CartID, err)
	}
}

// PaymentResult handles POST /checkout/payment/result. The body is the raw
// terminal message, exactly as the payment page would send it. Once the
// session has resolved, any post re-applies the session's own message, which
// retries a transaction the backend did not take.
func (h *CheckoutHandler) PaymentResult(w http.ResponseWriter, r *http.Request) {
	o, err := h.desk.Current()
	if err != nil {
		writeError(w, "payment result", err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := o.OnPaymentResult(r.Context(), payment.ParseMessage(body)); err != nil {
		writeError(w, "payment result", err)
		return
	}
	writeJSON(w, http.StatusOK, o.Status())
}

// CashOnDelivery handles POST /checkout/cash.
func (h *CheckoutHandler) CashOnDelivery(w http.ResponseWriter, r *http.Request) {
	o, err := h.desk.Current()
	if err != nil {
		writeError(w, "cash on delivery", err)
		return
	}
	if err := o.CompleteCashOnDelivery(r.Context()); err != nil {
		writeError(w, "cash on delivery", err)
		return
	}
	writeJSON(w, http.StatusOK, o.Status())
}

// Abandon handles DELETE /checkout.
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	o, err := h.desk.Current()
	if err != nil {
		writeError(w, "abandon checkout", err)
		return
	}
	if err := o.Abandon(r.Context()); err != nil {
		writeError(w, "abandon checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, o.Status())
}
